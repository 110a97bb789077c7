package model

// BalanceSheet is a firm's position at a round boundary.
// Identity: Cash+Inventory+FixedAssets == STDebt+LTDebt+Equity+RetainedEarnings.
type BalanceSheet struct {
	Cash             float64 `json:"cash" yaml:"cash"`
	Inventory        float64 `json:"inventory" yaml:"inventory"`
	FixedAssets      float64 `json:"fixedAssets" yaml:"fixed_assets"`
	STDebt           float64 `json:"stDebt" yaml:"st_debt"`
	LTDebt           float64 `json:"ltDebt" yaml:"lt_debt"`
	Equity           float64 `json:"equity" yaml:"equity"`
	RetainedEarnings float64 `json:"retainedEarnings" yaml:"retained_earnings"`
}

// TotalAssets returns cash plus inventory plus fixed assets.
func (b BalanceSheet) TotalAssets() float64 {
	return b.Cash + b.Inventory + b.FixedAssets
}

// TotalDebt returns short-term plus long-term debt.
func (b BalanceSheet) TotalDebt() float64 {
	return b.STDebt + b.LTDebt
}

// TotalEquity returns paid-in equity plus retained earnings.
func (b BalanceSheet) TotalEquity() float64 {
	return b.Equity + b.RetainedEarnings
}

// Imbalance returns assets minus liabilities and equity. Zero for a consistent sheet.
func (b BalanceSheet) Imbalance() float64 {
	return b.TotalAssets() - b.TotalDebt() - b.TotalEquity()
}

// Normalized returns a copy with non-finite fields coerced to 0.
func (b BalanceSheet) Normalized() BalanceSheet {
	return BalanceSheet{
		Cash:             Finite(b.Cash),
		Inventory:        NonNeg(b.Inventory),
		FixedAssets:      NonNeg(b.FixedAssets),
		STDebt:           NonNeg(b.STDebt),
		LTDebt:           NonNeg(b.LTDebt),
		Equity:           Finite(b.Equity),
		RetainedEarnings: Finite(b.RetainedEarnings),
	}
}

// Limits are per-round capacity ceilings in hours (machine, labour) and units (material).
type Limits struct {
	Machine  float64 `json:"machine" yaml:"machine"`
	Labour   float64 `json:"labour" yaml:"labour"`
	Material float64 `json:"material" yaml:"material"`
}

// Position is a balance sheet plus the capacity it operates with.
type Position struct {
	Sheet  BalanceSheet `json:"sheet" yaml:"sheet"`
	Limits Limits       `json:"limits" yaml:"limits"`
}

// InventoryLot is the aggregate of all carried units of one product.
type InventoryLot struct {
	Units float64 `json:"units"`
	Value float64 `json:"value"`
}

// UnitCost returns value per unit, or 0 for an empty lot.
func (l InventoryLot) UnitCost() float64 {
	if l.Units <= 0 {
		return 0
	}
	return l.Value / l.Units
}

// Inventory is the carried lot of every product.
type Inventory = PerProduct[InventoryLot]

// InventoryValue sums the lot values of inv.
func InventoryValue(inv Inventory) float64 {
	total := 0.0
	for _, p := range Products {
		total += inv.Get(p).Value
	}
	return total
}

// FirmState is the immutable record written for a firm at the end of each round.
// Round 0 is the seeded starting position.
type FirmState struct {
	GameID     string      `json:"game_id"`
	FirmID     string      `json:"firm_id"`
	Round      int         `json:"round"`
	Position   Position    `json:"position"`
	Inventory  Inventory   `json:"inventory_details"`
	Efficiency float64     `json:"efficiency"`
	Result     *YearResult `json:"result,omitempty"`
	Carried    bool        `json:"carried,omitempty"`
}

// Firm is a participant in a game.
type Firm struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
