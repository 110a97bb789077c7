package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// CostOfEquity is the annual capital charge applied to shareholders' funds in EVA.
const CostOfEquity = 0.12

// LoanPayment returns the fixed annual payment that amortizes principal over term years
// at rate percent: P * r(1+r)^n / ((1+r)^n - 1).
// A non-positive term is due immediately; a zero rate splits the principal evenly.
func LoanPayment(principal, rate float64, term int) float64 {
	principal = finite(principal)
	if principal <= 0 {
		return 0
	}
	if term <= 0 {
		return principal
	}
	r := finite(rate) / 100
	if r == 0 {
		return principal / float64(term)
	}
	growth := math.Pow(1+r, float64(term))
	return finite(principal * (r * growth) / (growth - 1))
}

// EVA returns net income less the capital charge on equity.
func EVA(netIncome, equity, costOfEquity float64) float64 {
	return finite(netIncome - equity*costOfEquity)
}

// ScheduleRow is one year of a loan's amortization, rounded to cents.
type ScheduleRow struct {
	Year      int     `json:"year"`
	Payment   float64 `json:"payment"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Balance   float64 `json:"balance"`
}

// AmortizationSchedule splits each annual payment into interest and principal.
// The last row absorbs rounding so the closing balance is exactly zero.
func AmortizationSchedule(principal, rate float64, term int) []ScheduleRow {
	payment := LoanPayment(principal, rate, term)
	if payment == 0 {
		return nil
	}
	if term <= 0 {
		term = 1
	}

	r := decimal.NewFromFloat(finite(rate)).Div(decimal.NewFromInt(100))
	balance := decimal.NewFromFloat(principal).Round(2)
	pay := decimal.NewFromFloat(payment).Round(2)

	rows := make([]ScheduleRow, 0, term)
	for year := 1; year <= term; year++ {
		interest := balance.Mul(r).Round(2)
		principalPart := pay.Sub(interest)
		if year == term || principalPart.GreaterThan(balance) {
			principalPart = balance
		}
		balance = balance.Sub(principalPart)
		rows = append(rows, ScheduleRow{
			Year:      year,
			Payment:   interest.Add(principalPart).InexactFloat64(),
			Interest:  interest.InexactFloat64(),
			Principal: principalPart.InexactFloat64(),
			Balance:   balance.InexactFloat64(),
		})
	}
	return rows
}

// SafeDiv returns num/den, or 0 when den is zero or the result is not finite.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
