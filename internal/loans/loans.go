package loans

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FirmSim/internal/calculator"
	"FirmSim/internal/model"
)

// Suggested terms in rounds for approved requests.
const (
	DefaultSTTerm = 1
	DefaultLTTerm = 10
)

var ErrInvalidReview = errors.New("invalid loan review")

// FromDecision builds the pending requests implied by a decision's new borrowing.
func FromDecision(fd model.FirmDecision, now time.Time) []model.LoanRequest {
	var out []model.LoanRequest
	add := func(t model.LoanType, amount float64) {
		if model.NonNeg(amount) <= 0 {
			return
		}
		out = append(out, model.LoanRequest{
			ID:              uuid.NewString(),
			GameID:          fd.GameID,
			FirmID:          fd.FirmID,
			Round:           fd.Round,
			Type:            t,
			RequestedAmount: amount,
			Status:          model.LoanPending,
			CreatedAt:       now,
		})
	}
	add(model.LoanST, fd.Data.Finance.NewST)
	add(model.LoanLT, fd.Data.Finance.NewLT)
	return out
}

// Review records the instructor's resolution of a request.
// Denied requests are cleared; granted ones need a positive amount and term.
func Review(req model.LoanRequest, status model.LoanStatus, amount, rate float64, term int) (model.LoanRequest, error) {
	switch status {
	case model.LoanDenied, model.LoanPending:
		req.ApprovedAmount, req.ApprovedRate, req.ApprovedTerm = 0, 0, 0
	case model.LoanApproved, model.LoanPartial:
		if model.NonNeg(amount) <= 0 || term <= 0 || model.NonNeg(rate) != rate {
			return req, fmt.Errorf("%w: amount=%.2f rate=%.2f term=%d", ErrInvalidReview, amount, rate, term)
		}
		if status == model.LoanApproved {
			amount = req.RequestedAmount
		}
		req.ApprovedAmount, req.ApprovedRate, req.ApprovedTerm = amount, rate, term
	default:
		return req, fmt.Errorf("%w: unknown status %q", ErrInvalidReview, status)
	}
	req.Status = status
	return req, nil
}

// Suggest approves a request in full at the rate its credit rating implies.
func Suggest(req model.LoanRequest, rating model.CreditRating) model.LoanRequest {
	req.Status = model.LoanApproved
	req.ApprovedAmount = req.RequestedAmount
	if req.Type == model.LoanST {
		req.ApprovedRate = rating.EstimatedST
		req.ApprovedTerm = DefaultSTTerm
	} else {
		req.ApprovedRate = rating.EstimatedLT
		req.ApprovedTerm = DefaultLTTerm
	}
	return req
}

// Apply replaces every decision's new borrowing with what the instructor granted for that round.
// Pending, denied and absent requests grant nothing. The returned terms hold the approved
// rate per firm, falling back to the game rate when none was set.
func Apply(decisions []model.FirmDecision, requests []model.LoanRequest, rates model.Rates) ([]model.FirmDecision, map[string]*model.LoanTerms) {
	terms := make(map[string]*model.LoanTerms)
	amounts := make(map[string]*model.Finance)
	for _, r := range requests {
		t := terms[r.FirmID]
		if t == nil {
			t = &model.LoanTerms{}
			terms[r.FirmID] = t
			amounts[r.FirmID] = &model.Finance{}
		}
		amount, rate := 0.0, r.ApprovedRate
		if r.Status.Granted() {
			amount = model.NonNeg(r.ApprovedAmount)
		}
		switch r.Type {
		case model.LoanST:
			if !r.Status.Granted() || rate <= 0 {
				rate = rates.ST
			}
			t.ST = &model.LoanRate{Rate: rate}
			amounts[r.FirmID].NewST = amount
		case model.LoanLT:
			if !r.Status.Granted() || rate <= 0 {
				rate = rates.LT
			}
			t.LT = &model.LoanRate{Rate: rate}
			amounts[r.FirmID].NewLT = amount
		}
	}

	out := make([]model.FirmDecision, len(decisions))
	for i, fd := range decisions {
		granted := amounts[fd.FirmID]
		if granted == nil {
			granted = &model.Finance{}
		}
		fd.Data.Finance.NewST = granted.NewST
		fd.Data.Finance.NewLT = granted.NewLT
		out[i] = fd
	}
	return out, terms
}

// MandatoryPayment sums the annuity payments due in round on a firm's granted loans.
// A loan taken in round r is serviced in rounds r+1 through r+term.
func MandatoryPayment(granted []model.LoanRequest, firmID string, round int) float64 {
	total := 0.0
	for _, r := range granted {
		if r.FirmID != firmID || !r.Status.Granted() {
			continue
		}
		if round <= r.Round || round > r.Round+r.ApprovedTerm {
			continue
		}
		total += calculator.LoanPayment(r.ApprovedAmount, r.ApprovedRate, r.ApprovedTerm)
	}
	return total
}
