package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"

	"FirmSim/internal/calculator"
	"FirmSim/internal/model"
	"FirmSim/internal/notifier"
	"FirmSim/internal/round"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func renderStatus(s *session) error {
	g, err := s.store.GetGame(s.gameID())
	if err != nil {
		return err
	}
	decisions, err := s.store.Decisions(g.ID, g.CurrentRound)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(g.Name))
	fmt.Printf("Round:      %d of %d\n", g.CurrentRound, g.FinalRound)
	fmt.Printf("Status:     %s\n", g.Status)
	fmt.Printf("Decisions:  %d/%d firms\n", len(decisions), len(g.Firms))
	fmt.Printf("Rates:      ST %.1f%% | LT %.1f%% | Tax %.1f%%\n\n", g.Rates.ST, g.Rates.LT, g.Rates.Tax)
	return nil
}

func renderYear(r model.YearResult) {
	in := r.Income
	accent.Println("\n== INCOME STATEMENT ==")
	fmt.Printf("Revenue:            %14s\n", notifier.Money(in.Revenue))
	fmt.Printf("COGS:               %14s\n", notifier.Money(in.COGS))
	fmt.Printf("Gross Profit:       %14s\n", colorizeMoney(in.GrossProfit))
	fmt.Printf("Depreciation:       %14s\n", notifier.Money(in.Depreciation))
	fmt.Printf("Training:           %14s\n", notifier.Money(in.Training))
	fmt.Printf("EBIT:               %14s\n", colorizeMoney(in.EBIT))
	fmt.Printf("Interest:           %14s\n", notifier.Money(in.Interest))
	fmt.Printf("Tax:                %14s\n", notifier.Money(in.Tax))
	fmt.Printf("Net Income:         %14s\n", colorizeMoney(in.NetIncome))
	fmt.Printf("EVA:                %14s\n", colorizeMoney(r.EVA))

	sh := r.Sheet
	fmt.Println()
	accent.Println("Balance Sheet")
	fmt.Printf("%-18s %14s   %-18s %14s\n", "Cash", colorizeMoney(sh.Cash), "ST Debt", notifier.Money(sh.STDebt))
	fmt.Printf("%-18s %14s   %-18s %14s\n", "Inventory", notifier.Money(sh.Inventory), "LT Debt", notifier.Money(sh.LTDebt))
	fmt.Printf("%-18s %14s   %-18s %14s\n", "Fixed Assets", notifier.Money(sh.FixedAssets), "Equity", notifier.Money(sh.Equity))
	fmt.Printf("%-18s %14s   %-18s %14s\n", "", "", "Retained Earnings", colorizeMoney(sh.RetainedEarnings))

	fmt.Println()
	accent.Println("Ratios")
	fmt.Printf("ROE %s  ROA %s  turnover %.2f  leverage %.2f  D/E %.2f\n",
		colorizePercent(r.Ratios.ROE), colorizePercent(r.Ratios.ROA),
		r.Ratios.AssetTurnover, r.Ratios.EquityMultiplier, r.Ratios.DebtEquity)

	fmt.Println()
	accent.Println("Operations")
	fmt.Printf("Units sold:  A %s  B %s  C %s\n", notifier.Units(r.UnitsSold.A), notifier.Units(r.UnitsSold.B), notifier.Units(r.UnitsSold.C))
	fmt.Printf("Machine:     %s\n", capacity(r.Capacity.Machine))
	fmt.Printf("Labour:      %s\n", capacity(r.Capacity.Labour))
	fmt.Printf("Next limits: machine %.0f  labour %.0f  efficiency %.1f%%\n",
		r.NextLimits.Machine, r.NextLimits.Labour, r.NextEfficiency*100)
	if r.MandatoryPaid > 0 {
		fmt.Printf("Loan service: %s\n", notifier.Money(r.MandatoryPaid))
	}

	if liq := r.Liquidation; liq.Loss > 0 || liq.InventorySold > 0 || liq.FixedAssetsSold > 0 {
		fmt.Println()
		printWarn(fmt.Sprintf("Forced liquidation: inventory %s, fixed assets %s, recovered %s, loss %s",
			notifier.Money(liq.InventorySold), notifier.Money(liq.FixedAssetsSold),
			notifier.Money(liq.Recovered), notifier.Money(liq.Loss)))
	}
	switch {
	case r.Insolvent:
		printError(fmt.Sprintf("Insolvent: %s of debt written off.", notifier.Money(r.DebtWrittenOff)))
	case r.CashShortfall:
		printError("Cash remains negative after liquidation.")
	}
	fmt.Println()
}

func capacity(c model.CapacityUse) string {
	text := fmt.Sprintf("%.0f / %.0f h", c.Used, c.Limit)
	if c.IsOver {
		return danger.Sprint(text + " over capacity")
	}
	return text
}

func renderOutcome(out *round.Outcome) {
	title := fmt.Sprintf("ROUND %d CLEARED", out.Round)
	if out.Final {
		title = fmt.Sprintf("FINAL ROUND %d SETTLED", out.Round)
	}
	accent.Printf("\n== %s ==\n", title)
	fmt.Printf("%-8s %12s %12s\n", "PRODUCT", "PRICE", "QTY")
	for _, p := range model.Products {
		c := out.Clearing.Get(p)
		fmt.Printf("%-8s %12s %12s\n", p, notifier.Money(c.Price), notifier.Units(c.Qty))
	}

	fmt.Println()
	fmt.Printf("%-12s %14s %14s %14s %14s\n", "FIRM", "REVENUE", "NET INCOME", "CASH", "EVA")
	for _, st := range out.States {
		if st.Result == nil {
			fmt.Printf("%-12s %s\n", truncate(st.FirmID, 12), neutral.Sprint("no decision, carried forward"))
			continue
		}
		res := st.Result
		fmt.Printf("%-12s %14s %14s %14s %14s\n",
			truncate(st.FirmID, 12),
			notifier.Money(res.Income.Revenue),
			colorizeMoney(res.Income.NetIncome),
			colorizeMoney(res.Sheet.Cash),
			colorizeMoney(res.EVA),
		)
	}
	fmt.Println()
}

func renderLeaderboard(rows []model.Standing) {
	accent.Println("\n== LEADERBOARD ==")
	if len(rows) == 0 {
		printInfo("No settled rounds yet.")
		return
	}
	fmt.Printf("%-6s %-18s %14s %9s %9s %9s %9s\n", "RANK", "FIRM", "EVA", "ROE", "MARGIN", "TURN", "LEV")
	for _, r := range rows {
		name := r.FirmName
		if name == "" {
			name = r.FirmID
		}
		if r.Carried {
			name += "*"
		}
		fmt.Printf("%-6d %-18s %14s %9s %8.1f%% %9.2f %9.2f\n",
			r.Rank,
			truncate(name, 18),
			colorizeMoney(r.EVA),
			colorizePercent(r.ROE),
			r.ProfitMargin,
			r.AssetTurnover,
			r.EquityMultiplier,
		)
	}
	fmt.Println()
}

func renderRating(r model.CreditRating) {
	accent.Printf("\n== CREDIT RATING %s ==\n", r.Rating)
	fmt.Printf("Grade:          %s (%s)\n", r.Rating, r.Label)
	fmt.Printf("Score:          %.0f\n", r.Score)
	fmt.Printf("Risk premium:   %.2f pp\n", r.RiskPremium)
	fmt.Printf("Suggested ST:   %.2f%%\n", r.EstimatedST)
	fmt.Printf("Suggested LT:   %.2f%%\n", r.EstimatedLT)
	if len(r.Factors) > 0 {
		fmt.Println()
		fmt.Printf("%-20s %10s %8s  %s\n", "FACTOR", "VALUE", "ADJ", "COMMENT")
		for _, f := range r.Factors {
			fmt.Printf("%-20s %10.2f %8s  %s\n", f.Name, f.Value, colorizeSigned(f.Adjustment), f.Commentary)
		}
	}
	fmt.Println()
}

func renderRatings(ratings map[string]model.CreditRating) {
	ids := make([]string, 0, len(ratings))
	for id := range ratings {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	accent.Println("\n== CREDIT RATINGS ==")
	fmt.Printf("%-12s %-6s %-12s %7s %8s %8s\n", "FIRM", "GRADE", "LABEL", "SCORE", "ST", "LT")
	for _, id := range ids {
		r := ratings[id]
		fmt.Printf("%-12s %-6s %-12s %7.0f %7.2f%% %7.2f%%\n",
			truncate(id, 12), r.Rating, truncate(r.Label, 12), r.Score, r.EstimatedST, r.EstimatedLT)
	}
	fmt.Println()
}

func renderSchedule(amount, rate float64, term int) {
	rows := calculator.AmortizationSchedule(amount, rate, term)
	accent.Printf("\n== LOAN %s at %.2f%% over %d rounds ==\n", notifier.Money(amount), rate, term)
	if len(rows) == 0 {
		printInfo("Nothing to repay.")
		return
	}
	fmt.Printf("Payment: %s per round\n\n", notifier.Money(rows[0].Payment))
	fmt.Printf("%-6s %14s %14s %14s %14s\n", "YEAR", "PAYMENT", "INTEREST", "PRINCIPAL", "BALANCE")
	for _, r := range rows {
		fmt.Printf("%-6d %14s %14s %14s %14s\n", r.Year,
			notifier.Money(r.Payment), notifier.Money(r.Interest), notifier.Money(r.Principal), notifier.Money(r.Balance))
	}
	fmt.Println()
}

func renderLoans(rnd int, reqs []model.LoanRequest) {
	accent.Printf("\n== LOAN REQUESTS (round %d) ==\n", rnd)
	if len(reqs) == 0 {
		printInfo("No loan requests.")
		return
	}
	fmt.Printf("%-12s %-4s %14s %-9s %14s %8s %6s\n", "FIRM", "TYPE", "REQUESTED", "STATUS", "GRANTED", "RATE", "TERM")
	for _, r := range reqs {
		status := string(r.Status)
		switch {
		case r.Status.Granted():
			status = success.Sprintf("%-9s", status)
		case r.Status == model.LoanDenied:
			status = danger.Sprintf("%-9s", status)
		default:
			status = warn.Sprintf("%-9s", status)
		}
		fmt.Printf("%-12s %-4s %14s %s %14s %7.2f%% %6d\n",
			truncate(r.FirmID, 12), r.Type, notifier.Money(r.RequestedAmount), status,
			notifier.Money(r.ApprovedAmount), r.ApprovedRate, r.ApprovedTerm)
	}
	fmt.Println()
}

func colorizeMoney(v float64) string {
	text := notifier.Money(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeSigned(v float64) string {
	text := fmt.Sprintf("%+.0f", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
