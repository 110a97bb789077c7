package model

// Standing is one firm's row on the leaderboard, with the DuPont breakdown of its return on equity.
// Margins and returns are percentages.
type Standing struct {
	Rank             int     `json:"rank"`
	FirmID           string  `json:"firm_id"`
	FirmName         string  `json:"firm_name"`
	Round            int     `json:"round"`
	EVA              float64 `json:"eva"`
	Revenue          float64 `json:"revenue"`
	NetIncome        float64 `json:"net_income"`
	TotalAssets      float64 `json:"total_assets"`
	Equity           float64 `json:"equity"`
	ProfitMargin     float64 `json:"profit_margin"`
	AssetTurnover    float64 `json:"asset_turnover"`
	ROA              float64 `json:"roa"`
	EquityMultiplier float64 `json:"equity_multiplier"`
	ROE              float64 `json:"roe"`
	Carried          bool    `json:"carried"`
	Insolvent        bool    `json:"insolvent"`
}
