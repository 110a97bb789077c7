package model

// DemandParams is a linear inverse demand curve price(Q) = Intercept - Slope*Q.
// Growth is the trend multiplier used when rolling the forecast.
type DemandParams struct {
	Intercept float64 `json:"intercept" yaml:"intercept"`
	Slope     float64 `json:"slope" yaml:"slope"`
	Growth    float64 `json:"growth" yaml:"growth"`
}

// Valid reports whether the curve can be cleared against.
func (d DemandParams) Valid() bool {
	return Finite(d.Intercept) > 0 && Finite(d.Slope) > 0
}

// PriceAt returns the demand price for quantity q.
func (d DemandParams) PriceAt(q float64) float64 {
	return d.Intercept - d.Slope*q
}

// DemandSet holds the curve of every product. A nil entry means no parameters were supplied.
type DemandSet = PerProduct[*DemandParams]

// ClearingResult is the market-clearing price and total traded quantity of one product.
type ClearingResult struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// Offer is one firm's supply offer for one product.
type Offer struct {
	FirmID string  `json:"firm_id"`
	Price  float64 `json:"price"`
	Qty    float64 `json:"qty"`
}

// Estimate is a forecast mean with its standard deviation.
type Estimate struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// MarketPoint is one realised year of price and demand.
type MarketPoint struct {
	Year   string  `json:"year"`
	Price  float64 `json:"price"`
	Demand float64 `json:"demand"`
}

// Forecast is the expectation published for the upcoming year.
type Forecast struct {
	Year   string   `json:"year"`
	Price  Estimate `json:"price"`
	Demand Estimate `json:"demand"`
}

// MarketSeries is the append-only history of one product plus its single current forecast.
type MarketSeries struct {
	Name     string        `json:"name"`
	History  []MarketPoint `json:"history"`
	Forecast Forecast      `json:"forecast"`
}

// Market is the series of every product in a game.
type Market = PerProduct[MarketSeries]
