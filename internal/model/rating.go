package model

// RatingFactor is one ratio's contribution to a credit score.
type RatingFactor struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Adjustment float64 `json:"adjustment"`
	Commentary string  `json:"commentary"`
}

// RatingTier maps a score range to a grade and a rate premium in percentage points.
type RatingTier struct {
	Rating      string  `json:"rating"`
	Label       string  `json:"label"`
	RiskPremium float64 `json:"riskPremium"`
}

// CreditRating is the credit assessment of a firm against the base rates.
type CreditRating struct {
	RatingTier
	Score        float64        `json:"score"`
	EstimatedST  float64        `json:"estimatedST"`
	EstimatedLT  float64        `json:"estimatedLT"`
	DebtToEquity float64        `json:"debtToEquity"`
	CurrentRatio float64        `json:"currentRatio"`
	Coverage     float64        `json:"interestCoverage"`
	Factors      []RatingFactor `json:"factors"`
}
