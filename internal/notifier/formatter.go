package notifier

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"FirmSim/internal/model"
)

// FormatClearingReport formats a cleared round's prices and volumes.
func FormatClearingReport(g *model.Game, round int, clearing model.PerProduct[model.ClearingResult]) string {
	var b strings.Builder

	title := fmt.Sprintf("Round %d cleared", round)
	if g.Status == model.StatusFinished {
		title = fmt.Sprintf("Final round %d settled", round)
	}
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", title, g.Name))

	for _, p := range model.Products {
		c := clearing.Get(p)
		b.WriteString(fmt.Sprintf("Product %s: %s × %s units\n", p, Money(c.Price), Units(c.Qty)))
	}
	if g.Status == model.StatusFinished {
		b.WriteString("\nAll assets liquidated and debts settled. 🏁")
	}
	return b.String()
}

// FormatRoundStatus formats the game's progress.
func FormatRoundStatus(g *model.Game, submitted int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>%s</b>\n\n", g.Name))
	b.WriteString(fmt.Sprintf("Round: %d of %d\n", g.CurrentRound, g.FinalRound))
	b.WriteString(fmt.Sprintf("Status: %s\n", g.Status))
	b.WriteString(fmt.Sprintf("Decisions: %d/%d firms\n", submitted, len(g.Firms)))
	b.WriteString(fmt.Sprintf("Rates: ST %.1f%% | LT %.1f%% | Tax %.1f%%\n", g.Rates.ST, g.Rates.LT, g.Rates.Tax))
	b.WriteString(fmt.Sprintf("Updated: %s\n", g.UpdatedAt.Format("2006-01-02 15:04")))
	return b.String()
}

// FormatLoanBook formats the reviewed loan requests of a round.
func FormatLoanBook(round int, reqs []model.LoanRequest) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏦 <b>Loan decisions</b> | round %d\n\n", round))
	if len(reqs) == 0 {
		b.WriteString("No loan requests this round.")
		return b.String()
	}
	for _, r := range reqs {
		line := fmt.Sprintf("%s %s: requested %s → %s", r.FirmID, r.Type, Money(r.RequestedAmount), r.Status)
		if r.Status.Granted() {
			line += fmt.Sprintf(" %s at %.2f%% over %d rounds", Money(r.ApprovedAmount), r.ApprovedRate, r.ApprovedTerm)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatLeaderboard formats ranked standings with their DuPont breakdown.
func FormatLeaderboard(rows []model.Standing) string {
	if len(rows) == 0 {
		return "🏆 No settled rounds yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏆 <b>Leaderboard</b> | round %d\n\n", rows[0].Round))
	for _, r := range rows {
		name := r.FirmName
		if name == "" {
			name = r.FirmID
		}
		b.WriteString(fmt.Sprintf("%d. %s  EVA %s\n", r.Rank, name, Money(r.EVA)))
		b.WriteString(fmt.Sprintf("   ROE %.1f%% = margin %.1f%% × turnover %.2f × leverage %.2f\n",
			r.ROE, r.ProfitMargin, r.AssetTurnover, r.EquityMultiplier))
		switch {
		case r.Insolvent:
			b.WriteString("   ⚠️ insolvent\n")
		case r.Carried:
			b.WriteString("   (no decision submitted)\n")
		}
	}
	return b.String()
}

// FormatRatings formats credit ratings sorted by firm id.
func FormatRatings(ratings map[string]model.CreditRating) string {
	ids := make([]string, 0, len(ratings))
	for id := range ratings {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var b strings.Builder
	b.WriteString("📈 <b>Credit ratings</b>\n\n")
	for _, id := range ids {
		r := ratings[id]
		b.WriteString(fmt.Sprintf("%s: %s (%s, score %.0f) ST %.1f%% LT %.1f%%\n",
			id, r.Rating, r.Label, r.Score, r.EstimatedST, r.EstimatedLT))
	}
	return b.String()
}

// Money formats v as dollars rounded to the cent with thousands separators.
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	s := d.StringFixed(2)
	whole, cents := s[:len(s)-3], s[len(s)-3:]
	return sign + "$" + group(whole) + cents
}

// Units formats a quantity as whole units with thousands separators.
func Units(v float64) string {
	return group(decimal.NewFromFloat(v).Round(0).StringFixed(0))
}

func group(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
