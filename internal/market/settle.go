package market

import (
	"math"

	"FirmSim/internal/model"
	"FirmSim/internal/simulation"
)

// ActualDecision rewrites a firm's plan into what it actually sold: on each product where its
// ask is at or below the clearing price it sells its offer, capped at carried plus produced
// units, at the clearing price. Elsewhere it sells nothing and the stock carries forward.
func ActualDecision(d model.Decision, clearing model.PerProduct[model.ClearingResult], inv model.Inventory) model.Decision {
	d = d.Normalized()
	out := d
	out.Sales = model.PerProduct[int]{}
	out.Price = model.PerProduct[float64]{}

	for _, p := range model.Products {
		c := clearing.Get(p)
		offered := d.Sales.Get(p)
		if offered <= 0 || d.Price.Get(p) > c.Price {
			continue
		}
		available := d.Qty.Get(p) + int(math.Floor(inv.Get(p).Units))
		out.Sales.Set(p, min(offered, available))
		out.Price.Set(p, c.Price)
	}
	return out
}

// Settlement is one firm's inputs to a round's settlement.
// A nil Prev means the firm starts from the game's setup position.
type Settlement struct {
	Decision         model.FirmDecision
	Prev             *model.FirmState
	Setup            model.Position
	Rates            model.Rates
	LoanTerms        *model.LoanTerms
	MandatoryPayment float64
	FinalRound       bool
}

// SettleFirm computes the firm's actual year at the clearing prices and returns the state it
// ends the round with.
func SettleFirm(s Settlement, clearing model.PerProduct[model.ClearingResult]) model.FirmState {
	start := s.Setup
	var inv model.Inventory
	var efficiency float64
	if s.Prev != nil {
		start = s.Prev.Position
		inv = s.Prev.Inventory
		efficiency = s.Prev.Efficiency
	}

	res := simulation.SimulateYear(simulation.Input{
		Start:            start,
		Decision:         ActualDecision(s.Decision.Data, clearing, inv),
		PrevEfficiency:   efficiency,
		Inventory:        inv,
		Rates:            s.Rates,
		LoanTerms:        s.LoanTerms,
		MandatoryPayment: s.MandatoryPayment,
		FinalRound:       s.FinalRound,
	})

	return model.FirmState{
		GameID:     s.Decision.GameID,
		FirmID:     s.Decision.FirmID,
		Round:      s.Decision.Round,
		Position:   res.Next(),
		Inventory:  res.NextInventory,
		Efficiency: res.NextEfficiency,
		Result:     &res,
	}
}

// CarryForward returns the state of a firm that submitted nothing for round:
// its previous position, stock and efficiency unchanged, with no year result.
func CarryForward(gameID, firmID string, round int, prev *model.FirmState, setup model.Position) model.FirmState {
	st := model.FirmState{
		GameID:   gameID,
		FirmID:   firmID,
		Round:    round,
		Position: setup,
		Carried:  true,
	}
	if prev != nil {
		st.Position = prev.Position
		st.Inventory = prev.Inventory
		st.Efficiency = prev.Efficiency
	}
	return st
}
