package simulation

import (
	"math"

	"FirmSim/internal/calculator"
	"FirmSim/internal/model"
)

// Input is everything SimulateYear needs for one firm and one round.
// Rates and LoanTerms are percentages. MandatoryPayment is debt service already due
// on approved amortizing loans; FinalRound triggers full liquidation and debt payoff.
type Input struct {
	Start            model.Position
	Decision         model.Decision
	PrevEfficiency   float64
	Inventory        model.Inventory
	Rates            model.Rates
	LoanTerms        *model.LoanTerms
	MandatoryPayment float64
	FinalRound       bool
}

// SimulateYear runs one firm through one round: production and FIFO sales, the income
// statement, cash flow, debt service, forced liquidation and the carry-forward state.
// It never fails; degenerate arithmetic is coerced to zero.
func SimulateYear(in Input) model.YearResult {
	d := in.Decision.Normalized()
	start := in.Start.Sheet.Normalized()
	limits := in.Start.Limits
	if limits == (model.Limits{}) {
		limits = DefaultLimits
	}
	efficiency := clampEfficiency(in.PrevEfficiency)

	var res model.YearResult
	var machineUsed, labourUsed float64
	var inc model.IncomeStatement

	for _, p := range model.Products {
		qty := float64(d.Qty.Get(p))
		recipe := Recipes.Get(p)
		machineUsed += qty * recipe.Machine
		labourUsed += qty * recipe.Labour

		unitCost := UnitCost(p, efficiency)
		inc.ProductionCost += qty * unitCost

		sale := sellFIFO(in.Inventory.Get(p), qty, unitCost, float64(d.Sales.Get(p)))
		inc.Revenue += sale.Sold * d.Price.Get(p)
		inc.COGS += sale.COGS
		res.UnitsSold.Set(p, sale.Sold)
		res.NextInventory.Set(p, sale.Ending)
	}

	res.Capacity = model.CapacityCheck{
		Machine: model.CapacityUse{Used: machineUsed, Limit: limits.Machine, IsOver: machineUsed > limits.Machine},
		Labour:  model.CapacityUse{Used: labourUsed, Limit: limits.Labour, IsOver: labourUsed > limits.Labour},
	}

	stRate, ltRate := borrowingRates(in.Rates, in.LoanTerms)
	inc.Depreciation = start.FixedAssets * DepreciationRate
	inc.Training = d.Inv.Labour
	inc.Interest = start.STDebt*stRate/100 + start.LTDebt*ltRate/100
	inc.GrossProfit = inc.Revenue - inc.COGS
	inc.EBIT = inc.GrossProfit - inc.Depreciation - inc.Training
	inc.EBT = inc.EBIT - inc.Interest
	if inc.EBT > 0 {
		inc.Tax = math.Max(0, inc.EBT*model.Finite(in.Rates.Tax)/100)
	}
	inc.NetIncome = inc.EBT - inc.Tax

	// Voluntary repayments never exceed what is owed; mandatory service then
	// retires long-term debt before short-term.
	payST := math.Min(d.Finance.PayST, start.STDebt)
	payLT := math.Min(d.Finance.PayLT, start.LTDebt)
	stLeft := start.STDebt - payST
	ltLeft := start.LTDebt - payLT
	mandatory := math.Min(model.NonNeg(in.MandatoryPayment), stLeft+ltLeft)
	mandLT := math.Min(mandatory, ltLeft)
	mandST := mandatory - mandLT
	res.MandatoryPaid = mandatory

	endST := stLeft - mandST + d.Finance.NewST
	endLT := ltLeft - mandLT + d.Finance.NewLT

	cashIn := start.Cash + inc.Revenue + d.Finance.NewST + d.Finance.NewLT
	cashOut := inc.ProductionCost + inc.Training + inc.Interest + inc.Tax +
		d.Inv.Machine + payST + payLT + d.Finance.Div

	b := books{
		cash:         cashIn - cashOut - mandatory,
		fixedAssets:  start.FixedAssets - inc.Depreciation + d.Inv.Machine,
		inventory:    res.NextInventory,
		machineLimit: limits.Machine + d.Inv.Machine/1000*CapacityPer1000Machine,
	}
	b.coverDeficit()
	res.CashShortfall = b.cash < 0

	equity := start.Equity
	if in.FinalRound {
		shortfall := b.finalSettlement(endST + endLT)
		endST, endLT = 0, 0
		if shortfall > 0 {
			res.Insolvent = true
			res.DebtWrittenOff = shortfall
			b.liq.Loss += shortfall
		}
		res.CashShortfall = false
	}

	inc.LiquidationLoss = b.liq.Loss
	retained := start.RetainedEarnings + inc.NetIncome - d.Finance.Div - b.liq.Loss
	if res.Insolvent {
		equity, retained = 0, 0
	}

	res.Sheet = model.BalanceSheet{
		Cash:             b.cash,
		Inventory:        b.inventoryValue(),
		FixedAssets:      b.fixedAssets,
		STDebt:           endST,
		LTDebt:           endLT,
		Equity:           equity,
		RetainedEarnings: retained,
	}
	res.NextInventory = b.inventory
	res.Liquidation = b.liq
	res.Income = inc

	res.NextLimits = model.Limits{
		Machine:  math.Max(0, b.machineLimit),
		Labour:   limits.Labour + d.Inv.Labour/1000*CapacityPer1000Labour,
		Material: MaterialLimit,
	}
	gain := (d.Inv.Machine + d.Inv.Labour) / 10000 * EfficiencyGainPer10k
	res.NextEfficiency = clampEfficiency(efficiency + gain)

	res.Ratios = ratios(res.Sheet, inc)
	res.EVA = calculator.EVA(inc.NetIncome-inc.LiquidationLoss, start.TotalEquity(), calculator.CostOfEquity)
	return res
}

// borrowingRates returns the firm's ST and LT rates, preferring its approved loan terms.
func borrowingRates(rates model.Rates, terms *model.LoanTerms) (st, lt float64) {
	st, lt = model.Finite(rates.ST), model.Finite(rates.LT)
	if terms == nil {
		return st, lt
	}
	if terms.ST != nil {
		st = model.Finite(terms.ST.Rate)
	}
	if terms.LT != nil {
		lt = model.Finite(terms.LT.Rate)
	}
	return st, lt
}

func ratios(sheet model.BalanceSheet, inc model.IncomeStatement) model.Ratios {
	assets := sheet.TotalAssets()
	equity := sheet.TotalEquity()

	var r model.Ratios
	if equity > 0 {
		r.ROE = calculator.SafeDiv(inc.NetIncome, equity) * 100
		r.EquityMultiplier = calculator.SafeDiv(assets, equity)
		r.DebtEquity = calculator.SafeDiv(sheet.TotalDebt(), equity)
	}
	if assets > 0 {
		r.ROA = calculator.SafeDiv(inc.NetIncome, assets) * 100
		r.AssetTurnover = calculator.SafeDiv(inc.Revenue, assets)
	}
	return r
}
