package market

import (
	"cmp"
	"log"
	"math"
	"slices"

	"FirmSim/internal/model"
)

// FallbackDemand is substituted for a product whose demand curve is missing or unusable.
var FallbackDemand = model.PerProduct[model.DemandParams]{
	A: model.DemandParams{Intercept: 50, Slope: 0.002, Growth: 1},
	B: model.DemandParams{Intercept: 60, Slope: 0.003, Growth: 1},
	C: model.DemandParams{Intercept: 70, Slope: 0.005, Growth: 1},
}

// DemandFor returns the usable demand curve of p, logging a warning when the fallback is used.
func DemandFor(demand model.DemandSet, p model.Product) model.DemandParams {
	d := demand.Get(p)
	if d == nil || !d.Valid() {
		log.Printf("[WARN] invalid demand parameters for product %s, using fallback curve", p)
		return FallbackDemand.Get(p)
	}
	return *d
}

// Offers builds the supply offers for p: one per decision offering a positive quantity.
func Offers(decisions []model.FirmDecision, p model.Product) []model.Offer {
	var offers []model.Offer
	for _, fd := range decisions {
		qty := float64(fd.Data.Sales.Get(p))
		if qty <= 0 {
			continue
		}
		offers = append(offers, model.Offer{
			FirmID: fd.FirmID,
			Price:  model.NonNeg(fd.Data.Price.Get(p)),
			Qty:    qty,
		})
	}
	return offers
}

// ClearMarket runs a merit-order auction for every product against its linear demand curve.
// It must see every decision of the round at once; it is deterministic and has no side effects
// beyond the fallback warning.
func ClearMarket(demand model.DemandSet, decisions []model.FirmDecision) model.PerProduct[model.ClearingResult] {
	var out model.PerProduct[model.ClearingResult]
	for _, p := range model.Products {
		out.Set(p, ClearProduct(DemandFor(demand, p), Offers(decisions, p)))
	}
	return out
}

// ClearProduct clears one product. Offers are ranked by ask, ties keep input order.
// The auction stops at the first offer whose ask exceeds the demand price at the cumulative
// quantity including it; that ask becomes the clearing price. If every offer fits under the
// curve, all supply clears at the curve's price for the total quantity.
func ClearProduct(d model.DemandParams, offers []model.Offer) model.ClearingResult {
	if len(offers) == 0 {
		return model.ClearingResult{Price: d.Intercept, Qty: 0}
	}

	sorted := slices.Clone(offers)
	slices.SortStableFunc(sorted, func(a, b model.Offer) int {
		return cmp.Compare(a.Price, b.Price)
	})

	var cumQ, price, qty float64
	cleared := true
	for _, o := range sorted {
		cumQ += o.Qty
		if o.Price > d.PriceAt(cumQ) {
			price = o.Price
			qty = (d.Intercept - o.Price) / d.Slope
			cleared = false
			break
		}
	}
	if cleared {
		price = d.PriceAt(cumQ)
		qty = cumQ
	}

	if math.IsNaN(price) || math.IsInf(price, 0) {
		price = d.Intercept
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		qty = 0
	}
	return model.ClearingResult{Price: math.Max(0, price), Qty: math.Max(0, qty)}
}
