package model

// IncomeStatement is one round's profit and loss.
type IncomeStatement struct {
	Revenue         float64 `json:"revenue"`
	COGS            float64 `json:"cogs"`
	GrossProfit     float64 `json:"grossProfit"`
	Depreciation    float64 `json:"depreciation"`
	Training        float64 `json:"trainingExp"`
	EBIT            float64 `json:"ebit"`
	Interest        float64 `json:"interest"`
	EBT             float64 `json:"ebt"`
	Tax             float64 `json:"tax"`
	NetIncome       float64 `json:"netIncome"`
	LiquidationLoss float64 `json:"liquidationLoss"`
	ProductionCost  float64 `json:"productionCost"`
}

// Ratios are the performance ratios reported for a round. ROE and ROA are percentages.
type Ratios struct {
	ROE              float64 `json:"roe"`
	ROA              float64 `json:"roa"`
	AssetTurnover    float64 `json:"assetTurnover"`
	EquityMultiplier float64 `json:"equityMultiplier"`
	DebtEquity       float64 `json:"debtEquityRatio"`
}

// CapacityUse compares hours used against the round's ceiling.
type CapacityUse struct {
	Used   float64 `json:"used"`
	Limit  float64 `json:"limit"`
	IsOver bool    `json:"isOver"`
}

// CapacityCheck is advisory: exceeding a limit is reported, not enforced.
type CapacityCheck struct {
	Machine CapacityUse `json:"machine"`
	Labour  CapacityUse `json:"labour"`
}

// Liquidation records forced asset sales during a round.
type Liquidation struct {
	InventorySold    float64 `json:"inventorySold"`
	FixedAssetsSold  float64 `json:"fixedAssetsSold"`
	Recovered        float64 `json:"recovered"`
	Loss             float64 `json:"loss"`
	MachineHoursLost float64 `json:"machineHoursLost"`
}

// YearResult is the full outcome of simulating one firm for one round.
// CashShortfall is set when forced liquidation could not restore non-negative cash.
type YearResult struct {
	Income         IncomeStatement     `json:"income"`
	Sheet          BalanceSheet        `json:"sheet"`
	Ratios         Ratios              `json:"ratios"`
	EVA            float64             `json:"eva"`
	Capacity       CapacityCheck       `json:"capacityCheck"`
	Liquidation    Liquidation         `json:"liquidation"`
	UnitsSold      PerProduct[float64] `json:"unitsSold"`
	NextLimits     Limits              `json:"nextLimits"`
	NextInventory  Inventory           `json:"nextInventory"`
	NextEfficiency float64             `json:"nextEfficiency"`
	MandatoryPaid  float64             `json:"mandatoryPaid"`
	CashShortfall  bool                `json:"cashShortfall"`
	Insolvent      bool                `json:"insolvent"`
	DebtWrittenOff float64             `json:"debtWrittenOff"`
}

// Next returns the position the firm starts the following round with.
func (r YearResult) Next() Position {
	return Position{Sheet: r.Sheet, Limits: r.NextLimits}
}
