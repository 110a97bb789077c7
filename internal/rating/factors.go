package rating

import (
	"fmt"

	"FirmSim/internal/model"
)

// healthyCurrentRatio is assumed when a firm carries no short-term debt.
const healthyCurrentRatio = 3.0

// scoreLeverage scores total debt against shareholders' funds.
func scoreLeverage(f *Financials) model.RatingFactor {
	equity := f.Sheet.TotalEquity()
	if equity == 0 {
		equity = 1
	}
	de := model.Finite(f.Sheet.TotalDebt() / equity)

	var adj float64
	switch {
	case de > 2.0:
		adj = -20
	case de > 1.5:
		adj = -10
	case de < 0.5:
		adj = 10
	}
	return model.RatingFactor{
		Name:       "Debt/Equity",
		Value:      de,
		Adjustment: adj,
		Commentary: fmt.Sprintf("D/E %.2f", de),
	}
}

// scoreLiquidity scores cash and inventory against short-term debt.
func scoreLiquidity(f *Financials) model.RatingFactor {
	cr := healthyCurrentRatio
	if f.Sheet.STDebt > 0 {
		cr = model.Finite((f.Sheet.Cash + f.Sheet.Inventory) / f.Sheet.STDebt)
	}

	var adj float64
	switch {
	case cr < 1.0:
		adj = -15
	case cr > 1.5:
		adj = 5
	}
	return model.RatingFactor{
		Name:       "Current Ratio",
		Value:      cr,
		Adjustment: adj,
		Commentary: fmt.Sprintf("CR %.2f", cr),
	}
}

// scoreCoverage scores operating profit against interest expense.
func scoreCoverage(f *Financials) model.RatingFactor {
	var ic float64
	switch {
	case f.Interest > 0:
		ic = model.Finite(f.EBIT / f.Interest)
	case f.EBIT > 0:
		ic = 10
	}

	var adj float64
	switch {
	case ic < 1.5:
		adj = -15
	case ic > 3.0:
		adj = 5
	}
	return model.RatingFactor{
		Name:       "Interest Coverage",
		Value:      ic,
		Adjustment: adj,
		Commentary: fmt.Sprintf("EBIT/Interest %.2f", ic),
	}
}
