package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"FirmSim/internal/model"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "firmsim.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func testGame() *model.Game {
	now := time.Unix(1700000000, 0)
	return &model.Game{
		ID:           "g1",
		Name:         "Spring cohort",
		CurrentRound: 1,
		FinalRound:   3,
		Status:       model.StatusOpen,
		Rates:        model.Rates{ST: 10, LT: 5, Tax: 30},
		Demand: model.DemandSet{
			A: &model.DemandParams{Intercept: 50, Slope: 0.002, Growth: 1.02},
		},
		Setup: model.Position{
			Sheet:  model.BalanceSheet{Cash: 29200, FixedAssets: 20000, Equity: 30000, RetainedEarnings: 19200},
			Limits: model.Limits{Machine: 1000, Labour: 1000, Material: 100000},
		},
		Firms:     []model.Firm{{ID: "f1", Name: "Acme"}, {ID: "f2", Name: "Globex"}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_Games(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetGame("missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing game: err = %v, want ErrNotFound", err)
			}

			g := testGame()
			if err := s.CreateGame(g); err != nil {
				t.Fatalf("create: %v", err)
			}
			got, err := s.GetGame("g1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Name != g.Name || got.Status != model.StatusOpen || got.Rates != g.Rates {
				t.Errorf("game = %+v", got)
			}
			if got.Demand.A == nil || *got.Demand.A != *g.Demand.A || got.Demand.B != nil {
				t.Errorf("demand = %+v", got.Demand)
			}
			if len(got.Firms) != 2 || got.Setup != g.Setup {
				t.Errorf("firms/setup = %+v %+v", got.Firms, got.Setup)
			}

			got.CurrentRound = 2
			got.Status = model.StatusCleared
			if err := s.UpdateGame(got); err != nil {
				t.Fatalf("update: %v", err)
			}
			again, _ := s.GetGame("g1")
			if again.CurrentRound != 2 || again.Status != model.StatusCleared {
				t.Errorf("after update = %d %s", again.CurrentRound, again.Status)
			}

			other := testGame()
			other.ID = "nope"
			if err := s.UpdateGame(other); !errors.Is(err, ErrNotFound) {
				t.Errorf("update missing: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_DecisionsReplaceByKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := model.FirmDecision{GameID: "g1", FirmID: "f2", Round: 1,
				Data: model.Decision{Qty: model.PerProduct[int]{A: 100}}}
			second := first
			second.Data.Qty.A = 250
			other := model.FirmDecision{GameID: "g1", FirmID: "f1", Round: 1}
			later := model.FirmDecision{GameID: "g1", FirmID: "f1", Round: 2}

			for _, fd := range []model.FirmDecision{first, second, other, later} {
				if err := s.SaveDecision(fd); err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			got, err := s.Decisions("g1", 1)
			if err != nil {
				t.Fatalf("decisions: %v", err)
			}
			if len(got) != 2 || got[0].FirmID != "f1" || got[1].FirmID != "f2" {
				t.Fatalf("decisions = %+v", got)
			}
			if got[1].Data.Qty.A != 250 {
				t.Errorf("qty = %d, want the replaced 250", got[1].Data.Qty.A)
			}
		})
	}
}

func TestStore_States(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			res := &model.YearResult{Income: model.IncomeStatement{Revenue: 9900, NetIncome: -1000}}
			states := []model.FirmState{
				{GameID: "g1", FirmID: "f1", Round: 1, Position: model.Position{Sheet: model.BalanceSheet{Cash: 29200}},
					Inventory: model.Inventory{A: model.InventoryLot{Units: 3, Value: 99}}, Efficiency: 0.01, Result: res},
				{GameID: "g1", FirmID: "f2", Round: 1, Carried: true},
			}
			if err := s.SaveStates(states); err != nil {
				t.Fatalf("save: %v", err)
			}

			got, err := s.States("g1", 1)
			if err != nil {
				t.Fatalf("states: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d states", len(got))
			}
			f1 := got[0]
			if f1.Result == nil || f1.Result.Income.Revenue != 9900 {
				t.Errorf("result = %+v", f1.Result)
			}
			if f1.Inventory.A != states[0].Inventory.A || f1.Efficiency != 0.01 {
				t.Errorf("f1 = %+v", f1)
			}
			if !got[1].Carried || got[1].Result != nil {
				t.Errorf("f2 = %+v", got[1])
			}

			if none, _ := s.States("g1", 2); len(none) != 0 {
				t.Errorf("round 2 has %d states", len(none))
			}
		})
	}
}

func TestStore_LoanRequests(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			created := time.Unix(1700000000, 0)
			reqs := []model.LoanRequest{
				{ID: "l1", GameID: "g1", FirmID: "f1", Round: 1, Type: model.LoanLT, RequestedAmount: 5000,
					Status: model.LoanPending, CreatedAt: created},
				{ID: "l2", GameID: "g1", FirmID: "f2", Round: 1, Type: model.LoanST, RequestedAmount: 800,
					Status: model.LoanPending, CreatedAt: created},
			}
			for _, r := range reqs {
				if err := s.SaveLoanRequest(r); err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			reviewed := reqs[0]
			reviewed.Status = model.LoanPartial
			reviewed.ApprovedAmount = 3000
			reviewed.ApprovedRate = 6
			reviewed.ApprovedTerm = 5
			if err := s.SaveLoanRequest(reviewed); err != nil {
				t.Fatalf("review: %v", err)
			}

			round, err := s.LoanRequests("g1", 1)
			if err != nil {
				t.Fatalf("requests: %v", err)
			}
			if len(round) != 2 {
				t.Fatalf("got %d requests, want 2", len(round))
			}

			granted, err := s.GrantedLoans("g1")
			if err != nil {
				t.Fatalf("granted: %v", err)
			}
			if len(granted) != 1 {
				t.Fatalf("got %d granted, want 1", len(granted))
			}
			g := granted[0]
			if g.ID != "l1" || g.ApprovedAmount != 3000 || g.ApprovedTerm != 5 || !g.CreatedAt.Equal(created) {
				t.Errorf("granted = %+v", g)
			}
		})
	}
}

func TestStore_MarketAndReset(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Market("g1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("empty market: err = %v, want ErrNotFound", err)
			}

			m := model.Market{
				A: model.MarketSeries{
					Name:     "Product A",
					History:  []model.MarketPoint{{Year: "Y0", Price: 32, Demand: 13000}},
					Forecast: model.Forecast{Year: "Y1", Price: model.Estimate{Mean: 33.5, SD: 1.5}},
				},
			}
			if err := s.SaveMarket("g1", m); err != nil {
				t.Fatalf("save market: %v", err)
			}
			got, err := s.Market("g1")
			if err != nil {
				t.Fatalf("market: %v", err)
			}
			if got.A.Name != "Product A" || len(got.A.History) != 1 || got.A.Forecast != m.A.Forecast {
				t.Errorf("market A = %+v", got.A)
			}

			if err := s.SaveDecision(model.FirmDecision{GameID: "g1", FirmID: "f1", Round: 1}); err != nil {
				t.Fatal(err)
			}
			if err := s.SaveDecision(model.FirmDecision{GameID: "g2", FirmID: "f1", Round: 1}); err != nil {
				t.Fatal(err)
			}
			if err := s.ResetGame("g1"); err != nil {
				t.Fatalf("reset: %v", err)
			}
			if d, _ := s.Decisions("g1", 1); len(d) != 0 {
				t.Errorf("g1 still has %d decisions", len(d))
			}
			if d, _ := s.Decisions("g2", 1); len(d) != 1 {
				t.Error("reset touched another game")
			}
			if _, err := s.Market("g1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("market after reset: err = %v", err)
			}
		})
	}
}

func TestStore_SettleRound(t *testing.T) {
	from := []model.RoundStatus{model.StatusClosed, model.StatusLoansReviewed}
	rolled := func(price float64) model.Market {
		return model.Market{A: model.MarketSeries{
			Name:    "Product A",
			History: []model.MarketPoint{{Year: "Y1", Price: price, Demand: 200}},
		}}
	}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g := testGame()
			g.Status = model.StatusClosed
			if err := s.CreateGame(g); err != nil {
				t.Fatal(err)
			}

			g.Status = model.StatusCleared
			states := []model.FirmState{{GameID: "g1", FirmID: "f1", Round: 1}}
			if err := s.SettleRound(g, from, states, rolled(30)); err != nil {
				t.Fatalf("settle: %v", err)
			}
			got, _ := s.GetGame("g1")
			if got.Status != model.StatusCleared {
				t.Errorf("status = %s, want cleared", got.Status)
			}
			if st, _ := s.States("g1", 1); len(st) != 1 {
				t.Errorf("%d states saved, want 1", len(st))
			}

			// A second clearing of the same round must not write anything.
			again := []model.FirmState{{GameID: "g1", FirmID: "f2", Round: 1}}
			if err := s.SettleRound(g, from, again, rolled(99)); !errors.Is(err, ErrConflict) {
				t.Fatalf("second settle: err = %v, want ErrConflict", err)
			}
			mk, _ := s.Market("g1")
			if len(mk.A.History) != 1 || mk.A.History[0].Price != 30 {
				t.Errorf("market rewritten: %+v", mk.A.History)
			}
			if st, _ := s.States("g1", 1); len(st) != 1 {
				t.Errorf("%d states after conflict, want 1", len(st))
			}

			g.CurrentRound = 2
			if err := s.SettleRound(g, []model.RoundStatus{model.StatusCleared}, nil, rolled(1)); !errors.Is(err, ErrConflict) {
				t.Errorf("wrong round: err = %v, want ErrConflict", err)
			}
		})
	}
}
