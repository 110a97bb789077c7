package round

import (
	"cmp"
	"slices"

	"FirmSim/internal/calculator"
	"FirmSim/internal/model"
)

// Rank builds the leaderboard from one round's states: EVA descending, ties by firm id.
// Firms carried forward score zero for the round.
func Rank(g *model.Game, states []model.FirmState) []model.Standing {
	names := make(map[string]string, len(g.Firms))
	for _, f := range g.Firms {
		names[f.ID] = f.Name
	}

	rows := make([]model.Standing, 0, len(states))
	for _, st := range states {
		sheet := st.Position.Sheet
		row := model.Standing{
			FirmID:      st.FirmID,
			FirmName:    names[st.FirmID],
			Round:       st.Round,
			TotalAssets: sheet.TotalAssets(),
			Equity:      sheet.TotalEquity(),
			Carried:     st.Carried,
		}
		if res := st.Result; res != nil {
			row.EVA = res.EVA
			row.Revenue = res.Income.Revenue
			row.NetIncome = res.Income.NetIncome
			row.Insolvent = res.Insolvent
		}
		dupont(&row)
		rows = append(rows, row)
	}

	slices.SortStableFunc(rows, func(a, b model.Standing) int {
		// Equivalent to cmp.Or (Go 1.22+), which the Go 1.21 toolchain lacks.
		if c := cmp.Compare(b.EVA, a.EVA); c != 0 {
			return c
		}
		return cmp.Compare(a.FirmID, b.FirmID)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// dupont fills ROE = profit margin x asset turnover x equity multiplier.
func dupont(r *model.Standing) {
	r.ProfitMargin = calculator.SafeDiv(r.NetIncome, r.Revenue) * 100
	r.AssetTurnover = calculator.SafeDiv(r.Revenue, r.TotalAssets)
	r.ROA = calculator.SafeDiv(r.NetIncome, r.TotalAssets) * 100
	if r.Equity > 0 {
		r.EquityMultiplier = r.TotalAssets / r.Equity
		r.ROE = r.NetIncome / r.Equity * 100
	}
}
