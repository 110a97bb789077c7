package market

import (
	"fmt"

	"FirmSim/internal/calculator"
	"FirmSim/internal/model"
)

// DefaultSeries returns the market every new or reset game starts with:
// five years of history (Y-4 to Y0) and a Y1 forecast per product.
func DefaultSeries() model.Market {
	return model.Market{
		A: model.MarketSeries{
			Name: "Product A (Mass Market)",
			History: []model.MarketPoint{
				{Year: "Y-4", Price: 26, Demand: 11000},
				{Year: "Y-3", Price: 27, Demand: 11500},
				{Year: "Y-2", Price: 28, Demand: 12000},
				{Year: "Y-1", Price: 30, Demand: 12500},
				{Year: "Y0", Price: 32, Demand: 13000},
			},
			Forecast: model.Forecast{
				Year:   "Y1",
				Price:  model.Estimate{Mean: 33.5, SD: 1.5},
				Demand: model.Estimate{Mean: 13500, SD: 800},
			},
		},
		B: model.MarketSeries{
			Name: "Product B (Specialized)",
			History: []model.MarketPoint{
				{Year: "Y-4", Price: 42, Demand: 7000},
				{Year: "Y-3", Price: 40, Demand: 7500},
				{Year: "Y-2", Price: 38, Demand: 8000},
				{Year: "Y-1", Price: 36, Demand: 8500},
				{Year: "Y0", Price: 35, Demand: 9000},
			},
			Forecast: model.Forecast{
				Year:   "Y1",
				Price:  model.Estimate{Mean: 34, SD: 2},
				Demand: model.Estimate{Mean: 9500, SD: 1200},
			},
		},
		C: model.MarketSeries{
			Name: "Product C (Premium/Niche)",
			History: []model.MarketPoint{
				{Year: "Y-4", Price: 38, Demand: 2500},
				{Year: "Y-3", Price: 39, Demand: 2800},
				{Year: "Y-2", Price: 40, Demand: 3000},
				{Year: "Y-1", Price: 42, Demand: 3200},
				{Year: "Y0", Price: 45, Demand: 3500},
			},
			Forecast: model.Forecast{
				Year:   "Y1",
				Price:  model.Estimate{Mean: 46.5, SD: 3},
				Demand: model.Estimate{Mean: 3800, SD: 400},
			},
		},
	}
}

// RollSeries turns each product's open forecast into a history point stamped with the clearing
// price and quantity of round, then publishes a fresh AR(1) forecast for the next year.
// The recorded demand is the auction quantity, not units sold: every offer at or under the
// clearing price sells in full, so actual sales can exceed it.
// The input is not modified.
func RollSeries(m model.Market, clearing model.PerProduct[model.ClearingResult], demand model.DemandSet, round int) model.Market {
	var out model.Market
	for _, p := range model.Products {
		out.Set(p, rollProduct(m.Get(p), clearing.Get(p), demand.Get(p), round))
	}
	return out
}

func rollProduct(s model.MarketSeries, c model.ClearingResult, d *model.DemandParams, round int) model.MarketSeries {
	year := s.Forecast.Year
	if year == "" {
		year = fmt.Sprintf("Y%d", round)
	}

	history := make([]model.MarketPoint, 0, len(s.History)+1)
	history = append(history, s.History...)
	history = append(history, model.MarketPoint{Year: year, Price: c.Price, Demand: c.Qty})

	prices := make([]float64, len(history))
	demands := make([]float64, len(history))
	for i, h := range history {
		prices[i] = h.Price
		demands[i] = h.Demand
	}

	trend := 1.0
	if d != nil && d.Growth > 0 {
		trend = d.Growth
	}
	return model.MarketSeries{
		Name:    s.Name,
		History: history,
		Forecast: model.Forecast{
			Year:   fmt.Sprintf("Y%d", round+1),
			Price:  calculator.AR1Forecast(prices, trend),
			Demand: calculator.AR1Forecast(demands, trend),
		},
	}
}
