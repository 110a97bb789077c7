package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"FirmSim/internal/model"
	"FirmSim/internal/store"
)

const sample = `{
  "game": {
    "id": "demo",
    "current_round": 1,
    "final_round": 3,
    "round_status": "closed",
    "rates": {"st": 10, "lt": 5, "tax": 30},
    "parameters": {"A": {"intercept": 50, "slope": 0.01, "growth": 1}},
    "firms": [{"id": "f1"}, {"id": "f2"}]
  },
  "decisions": [
    {"firm_id": "f1", "data": {"qty": {"A": 300}, "sales": {"A": 300}, "price": {"A": 20}}}
  ],
  "states": [
    {"firm_id": "f1", "round": 0, "position": {"sheet": {"cash": 1000, "equity": 1000}}}
  ],
  "loans": [
    {"firm_id": "f1", "round": 1, "loan_type": "LT", "requested_amount": 500, "status": "pending"}
  ]
}`

func TestLoadAndSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.json")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fd := sc.Decisions[0]
	if fd.GameID != "demo" || fd.Round != 1 || fd.Data.Qty.A != 300 {
		t.Errorf("decision = %+v", fd)
	}
	if sc.Game.Demand.A == nil || sc.Game.Demand.B != nil {
		t.Errorf("demand = %+v", sc.Game.Demand)
	}
	if sc.Loans[0].ID == "" || sc.Loans[0].GameID != "demo" {
		t.Errorf("loan = %+v", sc.Loans[0])
	}

	st := store.NewMemoryStore()
	if err := sc.Seed(st); err != nil {
		t.Fatalf("seed: %v", err)
	}
	g, err := st.GetGame("demo")
	if err != nil || g.Status != model.StatusClosed {
		t.Fatalf("game = %+v, %v", g, err)
	}
	states, _ := st.States("demo", 0)
	if len(states) != 1 || states[0].Position.Sheet.Cash != 1000 {
		t.Errorf("states = %+v", states)
	}
	reqs, _ := st.LoanRequests("demo", 1)
	if len(reqs) != 1 {
		t.Errorf("loan requests = %d", len(reqs))
	}
}

func TestLoad_RequiresGameID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"game": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing game id")
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.json")
	want := model.Estimate{Mean: 105, SD: 5}
	if err := Write(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read[model.Estimate](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
