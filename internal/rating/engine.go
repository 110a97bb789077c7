package rating

import (
	"math"

	"FirmSim/internal/model"
)

// baseScore is where every assessed firm starts, at the BBB level.
const baseScore = 75.0

// minRate floors any estimated borrowing rate, in percent.
const minRate = 2.0

// Tiers maps a credit score to a grade, highest first.
var Tiers = []struct {
	MinScore float64
	Tier     model.RatingTier
}{
	{90, model.RatingTier{Rating: "AAA", Label: "Prime", RiskPremium: -1.0}},
	{80, model.RatingTier{Rating: "A", Label: "Strong", RiskPremium: 0}},
	{65, model.RatingTier{Rating: "BBB", Label: "Standard", RiskPremium: 2.0}},
	{50, model.RatingTier{Rating: "BB", Label: "Speculative", RiskPremium: 4.0}},
}

// DefaultTier is the grade for scores below 50.
var DefaultTier = model.RatingTier{Rating: "C", Label: "Distressed", RiskPremium: 8.0}

// Financials is the slice of a firm's last reported round that the rating reads.
type Financials struct {
	Sheet    model.BalanceSheet
	EBIT     float64
	Interest float64
}

// FromState extracts the rated financials of a settled round.
// Seeded and missing states return nil, which rates as a new firm.
func FromState(st *model.FirmState) *Financials {
	if st == nil || st.Round == 0 || st.Result == nil {
		return nil
	}
	return &Financials{
		Sheet:    st.Position.Sheet,
		EBIT:     st.Result.Income.EBIT,
		Interest: st.Result.Income.Interest,
	}
}

func mapTier(score float64) model.RatingTier {
	for _, t := range Tiers {
		if score >= t.MinScore {
			return t.Tier
		}
	}
	return DefaultTier
}

// Evaluate rates a firm and estimates the rates it would borrow at.
func Evaluate(f *Financials, base model.Rates) model.CreditRating {
	if f == nil {
		return model.CreditRating{
			RatingTier:  model.RatingTier{Rating: "A", Label: "New Firm"},
			Score:       85,
			EstimatedST: base.ST,
			EstimatedLT: base.LT,
		}
	}

	fin := *f
	fin.Sheet = fin.Sheet.Normalized()
	fin.EBIT = model.Finite(fin.EBIT)
	fin.Interest = model.Finite(fin.Interest)

	lev := scoreLeverage(&fin)
	liq := scoreLiquidity(&fin)
	cov := scoreCoverage(&fin)

	score := baseScore + lev.Adjustment + liq.Adjustment + cov.Adjustment
	tier := mapTier(score)

	return model.CreditRating{
		RatingTier:   tier,
		Score:        score,
		EstimatedST:  math.Max(minRate, base.ST+tier.RiskPremium),
		EstimatedLT:  math.Max(minRate, base.LT+tier.RiskPremium),
		DebtToEquity: lev.Value,
		CurrentRatio: liq.Value,
		Coverage:     cov.Value,
		Factors:      []model.RatingFactor{lev, liq, cov},
	}
}
