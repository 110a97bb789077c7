package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"FirmSim/internal/model"
	"FirmSim/internal/store"
)

// Scenario is a self-contained game snapshot for offline runs: the game, the current round's
// decisions and loan book, the states they start from, and optionally the market series.
type Scenario struct {
	Game      model.Game           `json:"game"`
	Decisions []model.FirmDecision `json:"decisions"`
	States    []model.FirmState    `json:"states"`
	Loans     []model.LoanRequest  `json:"loans"`
	Market    *model.Market        `json:"market,omitempty"`
}

// Read decodes the JSON file at path into a T.
func Read[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

// Write encodes v as indented JSON to path, replacing the file atomically.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a scenario file. Decisions, states and loans inherit the game's id and
// decisions default to the game's current round.
func Load(path string) (*Scenario, error) {
	sc, err := Read[Scenario](path)
	if err != nil {
		return nil, err
	}
	if sc.Game.ID == "" {
		return nil, fmt.Errorf("scenario %s: game.id is required", path)
	}
	for i := range sc.Decisions {
		sc.Decisions[i].GameID = sc.Game.ID
		if sc.Decisions[i].Round == 0 {
			sc.Decisions[i].Round = sc.Game.CurrentRound
		}
	}
	for i := range sc.States {
		sc.States[i].GameID = sc.Game.ID
	}
	for i := range sc.Loans {
		sc.Loans[i].GameID = sc.Game.ID
		if sc.Loans[i].ID == "" {
			sc.Loans[i].ID = fmt.Sprintf("%s-%s-%d-%s", sc.Game.ID, sc.Loans[i].FirmID, sc.Loans[i].Round, sc.Loans[i].Type)
		}
	}
	return &sc, nil
}

// Seed writes the scenario into st.
func (sc *Scenario) Seed(st store.Store) error {
	g := sc.Game
	if err := st.CreateGame(&g); err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	for _, fd := range sc.Decisions {
		if err := st.SaveDecision(fd); err != nil {
			return fmt.Errorf("save decision: %w", err)
		}
	}
	if err := st.SaveStates(sc.States); err != nil {
		return fmt.Errorf("save states: %w", err)
	}
	for _, r := range sc.Loans {
		if err := st.SaveLoanRequest(r); err != nil {
			return fmt.Errorf("save loan request: %w", err)
		}
	}
	if sc.Market != nil {
		if err := st.SaveMarket(g.ID, *sc.Market); err != nil {
			return fmt.Errorf("save market: %w", err)
		}
	}
	return nil
}
