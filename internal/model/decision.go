package model

import "math"

// Investment is cash spent on capacity (machine) and training (labour) in a round.
type Investment struct {
	Machine float64 `json:"machine"`
	Labour  float64 `json:"labour"`
}

// Finance holds a round's borrowing, voluntary repayment and dividend decisions.
type Finance struct {
	NewST float64 `json:"newST"`
	NewLT float64 `json:"newLT"`
	PayST float64 `json:"payST"`
	PayLT float64 `json:"payLT"`
	Div   float64 `json:"div"`
}

// Decision is what a firm submits for one round. It is frozen once the round closes.
type Decision struct {
	Qty     PerProduct[int]     `json:"qty"`
	Sales   PerProduct[int]     `json:"sales"`
	Price   PerProduct[float64] `json:"price"`
	Inv     Investment          `json:"inv"`
	Finance Finance             `json:"finance"`
}

// FirmDecision ties a decision to the firm and round it was submitted for.
type FirmDecision struct {
	GameID string   `json:"game_id"`
	FirmID string   `json:"firm_id"`
	Round  int      `json:"round"`
	Data   Decision `json:"data"`
}

// Normalized returns a copy with every negative or non-finite field coerced to 0.
func (d Decision) Normalized() Decision {
	out := d
	for _, p := range Products {
		out.Qty.Set(p, nonNegInt(d.Qty.Get(p)))
		out.Sales.Set(p, nonNegInt(d.Sales.Get(p)))
		out.Price.Set(p, NonNeg(d.Price.Get(p)))
	}
	out.Inv.Machine = NonNeg(d.Inv.Machine)
	out.Inv.Labour = NonNeg(d.Inv.Labour)
	out.Finance.NewST = NonNeg(d.Finance.NewST)
	out.Finance.NewLT = NonNeg(d.Finance.NewLT)
	out.Finance.PayST = NonNeg(d.Finance.PayST)
	out.Finance.PayLT = NonNeg(d.Finance.PayLT)
	out.Finance.Div = NonNeg(d.Finance.Div)
	return out
}

// NonNeg coerces NaN, infinities and negative values to 0.
func NonNeg(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Finite coerces NaN and infinities to 0 and leaves every other value unchanged.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
