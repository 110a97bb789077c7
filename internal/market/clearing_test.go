package market

import (
	"testing"

	"FirmSim/internal/model"
)

func decision(firm string, p model.Product, price float64, qty int) model.FirmDecision {
	var d model.Decision
	d.Price.Set(p, price)
	d.Sales.Set(p, qty)
	d.Qty.Set(p, qty)
	return model.FirmDecision{FirmID: firm, Round: 1, Data: d}
}

func demandA(intercept, slope float64) model.DemandSet {
	return model.DemandSet{A: &model.DemandParams{Intercept: intercept, Slope: slope, Growth: 1}}
}

func TestClearMarket_NoOffers(t *testing.T) {
	got := ClearMarket(demandA(50, 0.002), nil)
	if got.A != (model.ClearingResult{Price: 50, Qty: 0}) {
		t.Errorf("A = %+v, want {50 0}", got.A)
	}
}

func TestClearMarket_FallbackDemand(t *testing.T) {
	// B and C have no parameters; A has a zero slope.
	demand := model.DemandSet{A: &model.DemandParams{Intercept: 80}}
	got := ClearMarket(demand, nil)
	want := model.PerProduct[model.ClearingResult]{
		A: model.ClearingResult{Price: 50},
		B: model.ClearingResult{Price: 60},
		C: model.ClearingResult{Price: 70},
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestClearProduct(t *testing.T) {
	d := model.DemandParams{Intercept: 50, Slope: 0.01}
	tests := []struct {
		name   string
		offers []model.Offer
		want   model.ClearingResult
	}{
		{
			name:   "all supply clears",
			offers: []model.Offer{{FirmID: "f1", Price: 10, Qty: 1000}, {FirmID: "f2", Price: 20, Qty: 1000}},
			want:   model.ClearingResult{Price: 30, Qty: 2000},
		},
		{
			name:   "marginal offer sets the price",
			offers: []model.Offer{{FirmID: "f2", Price: 40, Qty: 2000}, {FirmID: "f1", Price: 10, Qty: 2000}},
			want:   model.ClearingResult{Price: 40, Qty: 1000},
		},
		{
			name:   "single offer above the choke price",
			offers: []model.Offer{{FirmID: "f1", Price: 60, Qty: 10}},
			want:   model.ClearingResult{Price: 60, Qty: 0},
		},
		{
			name:   "free offer stops at the choke quantity",
			offers: []model.Offer{{FirmID: "f1", Price: 0, Qty: 9000}},
			want:   model.ClearingResult{Price: 0, Qty: 5000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClearProduct(d, tt.offers)
			if !approx(got.Price, tt.want.Price) || !approx(got.Qty, tt.want.Qty) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClearProduct_DoesNotReorderInput(t *testing.T) {
	offers := []model.Offer{{FirmID: "b", Price: 30, Qty: 5}, {FirmID: "a", Price: 10, Qty: 5}}
	ClearProduct(model.DemandParams{Intercept: 50, Slope: 0.01}, offers)
	if offers[0].FirmID != "b" {
		t.Error("input offers were reordered")
	}
}

func TestClearMarket_Idempotent(t *testing.T) {
	decisions := []model.FirmDecision{
		decision("f1", model.ProductA, 31.7, 400),
		decision("f2", model.ProductA, 28.3, 650),
		decision("f3", model.ProductA, 35.1, 900),
	}
	demand := demandA(50, 0.01)
	first := ClearMarket(demand, decisions)
	second := ClearMarket(demand, decisions)
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestClearMarket_RaisingHighestAskNeverLowersPrice(t *testing.T) {
	demand := demandA(50, 0.01)
	others := []model.FirmDecision{
		decision("f1", model.ProductA, 12, 800),
		decision("f2", model.ProductA, 25, 900),
	}

	prev := -1.0
	for ask := 26.0; ask <= 60; ask += 2.5 {
		decisions := append([]model.FirmDecision{decision("me", model.ProductA, ask, 700)}, others...)
		price := ClearMarket(demand, decisions).A.Price
		if price < prev {
			t.Fatalf("ask %.1f: price %.4f dropped below %.4f", ask, price, prev)
		}
		prev = price
	}
}

func TestClearMarket_RaisedAskCanBecomeMarginal(t *testing.T) {
	// 21@11356 fits under the curve (27.288) and 33 is marginal. Raised to 28 it
	// no longer fits and its own ask sets a lower price.
	demand := demandA(50, 0.002)
	before := ClearMarket(demand, []model.FirmDecision{
		decision("f1", model.ProductA, 33, 12312),
		decision("f2", model.ProductA, 21, 11356),
	}).A
	after := ClearMarket(demand, []model.FirmDecision{
		decision("f1", model.ProductA, 33, 12312),
		decision("f2", model.ProductA, 28, 11356),
	}).A

	if !approx(before.Price, 33) || !approx(before.Qty, 8500) {
		t.Errorf("before = %+v, want {33 8500}", before)
	}
	if !approx(after.Price, 28) || !approx(after.Qty, 11000) {
		t.Errorf("after = %+v, want {28 11000}", after)
	}
}

func TestOffers_SkipsEmptySales(t *testing.T) {
	decisions := []model.FirmDecision{
		decision("f1", model.ProductA, 30, 0),
		decision("f2", model.ProductA, 30, 10),
		decision("f3", model.ProductB, 30, 10),
	}
	offers := Offers(decisions, model.ProductA)
	if len(offers) != 1 || offers[0].FirmID != "f2" {
		t.Errorf("offers = %+v, want only f2", offers)
	}
}
