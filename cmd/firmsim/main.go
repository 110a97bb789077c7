package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"FirmSim/internal/calculator"
	"FirmSim/internal/config"
	"FirmSim/internal/model"
	"FirmSim/internal/notifier"
	"FirmSim/internal/rating"
	"FirmSim/internal/round"
	"FirmSim/internal/scenario"
	"FirmSim/internal/simulation"
	"FirmSim/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}

	root := &cobra.Command{
		Use:          "firmsim",
		Short:        "Business simulation round settlement",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "path to the YAML config")

	root.AddCommand(
		newSimulateCmd(&cfgPath),
		newClearCmd(),
		newForecastCmd(),
		newCreditCmd(&cfgPath),
		newGameCmd(&cfgPath),
		newRoundCmd(&cfgPath),
		newDecisionCmd(&cfgPath),
		newLoanCmd(&cfgPath),
		newLeaderboardCmd(&cfgPath),
		newRatingsCmd(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// session is an open game database plus the orchestrator driving it.
type session struct {
	cfg    *config.Config
	store  *store.SQLiteStore
	rounds *round.Orchestrator
}

func openSession(cmd *cobra.Command, cfgPath string) (*session, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		return nil, err
	}
	var n round.Notifier
	if cfg.Telegram.BotToken != "" {
		n = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}
	return &session{cfg: cfg, store: st, rounds: round.NewOrchestrator(cmd.Context(), st, n)}, nil
}

func (s *session) Close() {
	s.store.Close()
}

func (s *session) gameID() string {
	return s.cfg.Game.ID
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// withSession opens a session for the duration of fn.
func withSession(cfgPath *string, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, *cfgPath)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, s, args)
	}
}

func newSimulateCmd(cfgPath *string) *cobra.Command {
	var statePath, outPath string
	var mandatory float64
	var final bool

	cmd := &cobra.Command{
		Use:   "simulate DECISION.json",
		Short: "Project one firm-year from a decision file at its own prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			decision, err := scenario.Read[model.Decision](args[0])
			if err != nil {
				return err
			}
			in := simulation.Input{
				Start:            model.Position{Sheet: cfg.Game.Setup.BalanceSheet, Limits: cfg.Game.Setup.Limits},
				Decision:         decision,
				Rates:            cfg.Game.Rates,
				MandatoryPayment: mandatory,
				FinalRound:       final,
			}
			if statePath != "" {
				st, err := scenario.Read[model.FirmState](statePath)
				if err != nil {
					return err
				}
				in.Start, in.Inventory, in.PrevEfficiency = st.Position, st.Inventory, st.Efficiency
			}

			res := simulation.SimulateYear(in)
			renderYear(res)
			if outPath != "" {
				return scenario.Write(outPath, res)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&statePath, "state", "", "firm state JSON to start from (default: configured setup)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the year result as JSON")
	cmd.Flags().Float64Var(&mandatory, "mandatory", 0, "loan service due this round")
	cmd.Flags().BoolVar(&final, "final", false, "apply final-round settlement")
	return cmd
}

func newClearCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "clear SCENARIO.json",
		Short: "Clear and settle a round offline from a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			if sc.Game.Status != model.StatusLoansReviewed {
				sc.Game.Status = model.StatusClosed
			}
			st := store.NewMemoryStore()
			if err := sc.Seed(st); err != nil {
				return err
			}

			rounds := round.NewOrchestrator(cmd.Context(), st, nil)
			out, err := rounds.Clear(sc.Game.ID)
			if err != nil {
				return err
			}
			rows, err := rounds.Leaderboard(sc.Game.ID)
			if err != nil {
				return err
			}
			renderOutcome(out)
			renderLeaderboard(rows)
			if outPath != "" {
				return scenario.Write(outPath, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the clearing and settled states as JSON")
	return cmd
}

func newForecastCmd() *cobra.Command {
	var trend float64

	cmd := &cobra.Command{
		Use:   "forecast VALUE...",
		Short: "AR(1) forecast of the next value of a series",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series := make([]float64, len(args))
			for i, a := range args {
				v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
				if err != nil {
					return fmt.Errorf("value %d: %w", i+1, err)
				}
				series[i] = v
			}
			est := calculator.AR1Forecast(series, trend)
			accent.Println("\n== FORECAST ==")
			fmt.Printf("Mean: %12.2f\n", est.Mean)
			fmt.Printf("SD:   %12.2f\n\n", est.SD)
			return nil
		},
	}
	cmd.Flags().Float64Var(&trend, "trend", 1, "multiplicative growth applied to the mean")
	return cmd
}

func newCreditCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "credit [STATE.json]",
		Short: "Rate a firm state against the configured base rates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			var f *rating.Financials
			if len(args) == 1 {
				st, err := scenario.Read[model.FirmState](args[0])
				if err != nil {
					return err
				}
				f = rating.FromState(&st)
			}
			renderRating(rating.Evaluate(f, cfg.Game.Rates))
			return nil
		},
	}
}

func newGameCmd(cfgPath *string) *cobra.Command {
	game := &cobra.Command{
		Use:   "game",
		Short: "Game setup commands",
	}

	game.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the configured game with seeded round-0 states",
		Args:  cobra.NoArgs,
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			if _, err := s.store.GetGame(s.gameID()); err == nil {
				printWarn(fmt.Sprintf("Game %s already exists. Use `firmsim round reset` to start over.", s.gameID()))
				return nil
			}
			if err := s.rounds.NewGame(s.cfg.NewGame()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Created game %s with %d firms.", s.gameID(), len(s.cfg.Game.Firms)))
			return nil
		}),
	})

	game.AddCommand(&cobra.Command{
		Use:   "export FILE",
		Short: "Write the current round as a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			sc, err := exportScenario(s.store, s.gameID())
			if err != nil {
				return err
			}
			if err := scenario.Write(args[0], sc); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Exported round %d of %s to %s.", sc.Game.CurrentRound, s.gameID(), args[0]))
			return nil
		}),
	})

	return game
}

// exportScenario snapshots what clearing the current round would read.
func exportScenario(st store.Store, gameID string) (*scenario.Scenario, error) {
	g, err := st.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	decisions, err := st.Decisions(gameID, g.CurrentRound)
	if err != nil {
		return nil, err
	}
	states, err := st.States(gameID, max(0, g.CurrentRound-1))
	if err != nil {
		return nil, err
	}
	loans, err := st.GrantedLoans(gameID)
	if err != nil {
		return nil, err
	}
	current, err := st.LoanRequests(gameID, g.CurrentRound)
	if err != nil {
		return nil, err
	}
	for _, r := range current {
		if !r.Status.Granted() {
			loans = append(loans, r)
		}
	}
	sc := &scenario.Scenario{Game: *g, Decisions: decisions, States: states, Loans: loans}
	if mk, err := st.Market(gameID); err == nil {
		sc.Market = &mk
	}
	return sc, nil
}

func newRoundCmd(cfgPath *string) *cobra.Command {
	rnd := &cobra.Command{
		Use:   "round",
		Short: "Round lifecycle commands",
	}

	step := func(use, short string, fn func(r *round.Orchestrator, gameID string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
				if err := fn(s.rounds, s.gameID()); err != nil {
					return err
				}
				return renderStatus(s)
			}),
		}
	}

	rnd.AddCommand(
		step("open", "Open the next round for submissions", (*round.Orchestrator).Advance),
		step("close", "Stop accepting decisions", (*round.Orchestrator).Close),
		step("publish", "Publish the reviewed loan book", (*round.Orchestrator).PublishLoans),
		step("reset", "Wipe all rounds and return to setup", (*round.Orchestrator).Reset),
		&cobra.Command{
			Use:   "status",
			Short: "Show the current round",
			Args:  cobra.NoArgs,
			RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
				return renderStatus(s)
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear the market and settle every firm",
			Args:  cobra.NoArgs,
			RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
				out, err := s.rounds.Clear(s.gameID())
				if err != nil {
					return err
				}
				renderOutcome(out)
				return nil
			}),
		},
	)
	return rnd
}

func newDecisionCmd(cfgPath *string) *cobra.Command {
	decision := &cobra.Command{
		Use:   "decision",
		Short: "Firm decision commands",
	}
	decision.AddCommand(&cobra.Command{
		Use:   "submit FIRM DECISION.json",
		Short: "Submit or replace a firm's decision for the open round",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			d, err := scenario.Read[model.Decision](args[1])
			if err != nil {
				return err
			}
			fd := model.FirmDecision{GameID: s.gameID(), FirmID: args[0], Data: d}
			if err := s.rounds.SubmitDecision(fd); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Decision of %s recorded.", args[0]))
			return nil
		}),
	})
	return decision
}

func newLoanCmd(cfgPath *string) *cobra.Command {
	loan := &cobra.Command{
		Use:     "loan",
		Short:   "Loan review and calculator commands",
		Aliases: []string{"loans"},
	}

	var rate float64
	var term int
	schedule := &cobra.Command{
		Use:   "schedule AMOUNT",
		Short: "Show the annuity payment and amortization of a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			renderSchedule(amount, rate, term)
			return nil
		},
	}
	schedule.Flags().Float64Var(&rate, "rate", 5, "annual rate in percent")
	schedule.Flags().IntVar(&term, "term", 10, "term in rounds")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the current round's loan requests",
		Args:  cobra.NoArgs,
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			g, err := s.store.GetGame(s.gameID())
			if err != nil {
				return err
			}
			reqs, err := s.store.LoanRequests(s.gameID(), g.CurrentRound)
			if err != nil {
				return err
			}
			renderLoans(g.CurrentRound, reqs)
			return nil
		}),
	}

	var status string
	var amount, reviewRate float64
	var reviewTerm int
	review := &cobra.Command{
		Use:   "review FIRM ST|LT",
		Short: "Approve, partially approve or deny a loan request",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			t := model.LoanType(strings.ToUpper(args[1]))
			if t != model.LoanST && t != model.LoanLT {
				return fmt.Errorf("loan type must be ST or LT, got %q", args[1])
			}
			r, err := s.rounds.ReviewLoan(s.gameID(), args[0], t, model.LoanStatus(status), amount, reviewRate, reviewTerm)
			if err != nil {
				return err
			}
			renderLoans(r.Round, []model.LoanRequest{r})
			return nil
		}),
	}
	review.Flags().StringVar(&status, "status", string(model.LoanApproved), "approved, partial or denied")
	review.Flags().Float64Var(&amount, "amount", 0, "granted amount for partial approvals")
	review.Flags().Float64Var(&reviewRate, "rate", 0, "approved rate in percent")
	review.Flags().IntVar(&reviewTerm, "term", 0, "approved term in rounds")

	suggest := &cobra.Command{
		Use:   "suggest",
		Short: "Approve pending requests at rating-implied rates",
		Args:  cobra.NoArgs,
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			reqs, err := s.rounds.SuggestLoans(s.gameID())
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				printInfo("No pending loan requests.")
				return nil
			}
			renderLoans(reqs[0].Round, reqs)
			return nil
		}),
	}

	loan.AddCommand(schedule, list, review, suggest)
	return loan
}

func newLeaderboardCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Short:   "Rank firms by EVA over the latest settled round",
		Aliases: []string{"lb"},
		Args:    cobra.NoArgs,
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			rows, err := s.rounds.Leaderboard(s.gameID())
			if err != nil {
				return err
			}
			renderLeaderboard(rows)
			return nil
		}),
	}
}

func newRatingsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "Show every firm's credit rating",
		Args:  cobra.NoArgs,
		RunE: withSession(cfgPath, func(cmd *cobra.Command, s *session, args []string) error {
			ratings, err := s.rounds.Ratings(s.gameID())
			if err != nil {
				return err
			}
			renderRatings(ratings)
			return nil
		}),
	}
}
