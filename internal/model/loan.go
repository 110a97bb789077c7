package model

import "time"

// LoanType distinguishes short-term from long-term borrowing.
type LoanType string

const (
	LoanST LoanType = "ST"
	LoanLT LoanType = "LT"
)

// LoanStatus is the review state of a loan request.
type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanApproved LoanStatus = "approved"
	LoanPartial  LoanStatus = "partial"
	LoanDenied   LoanStatus = "denied"
)

// Granted reports whether the request carries an approved amount.
func (s LoanStatus) Granted() bool {
	return s == LoanApproved || s == LoanPartial
}

// LoanRequest is a firm's borrowing request for one round, resolved by the instructor.
// ApprovedRate is a percentage, ApprovedTerm is in rounds.
type LoanRequest struct {
	ID              string     `json:"id"`
	GameID          string     `json:"game_id"`
	FirmID          string     `json:"firm_id"`
	Round           int        `json:"round"`
	Type            LoanType   `json:"loan_type"`
	RequestedAmount float64    `json:"requested_amount"`
	ApprovedAmount  float64    `json:"approved_amount"`
	ApprovedRate    float64    `json:"approved_rate"`
	ApprovedTerm    int        `json:"approved_term"`
	Status          LoanStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Rates are the game's base interest rates and tax rate, as percentages.
type Rates struct {
	ST  float64 `json:"st" yaml:"st"`
	LT  float64 `json:"lt" yaml:"lt"`
	Tax float64 `json:"tax" yaml:"tax"`
}

// LoanRate is a per-firm rate override, as a percentage.
type LoanRate struct {
	Rate float64 `json:"rate"`
}

// LoanTerms overrides the global rates for a firm. Nil entries fall back to Rates.
type LoanTerms struct {
	ST *LoanRate `json:"st,omitempty"`
	LT *LoanRate `json:"lt,omitempty"`
}
