package store

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"FirmSim/internal/model"
)

type roundKey struct {
	gameID string
	firmID string
	round  int
}

type loanKey struct {
	roundKey
	loanType model.LoanType
}

// MemoryStore keeps everything in process memory. It backs the CLI's scratch games and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	games     map[string]model.Game
	decisions map[roundKey]model.FirmDecision
	states    map[roundKey]model.FirmState
	loans     map[loanKey]model.LoanRequest
	markets   map[string]model.Market
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:     make(map[string]model.Game),
		decisions: make(map[roundKey]model.FirmDecision),
		states:    make(map[roundKey]model.FirmState),
		loans:     make(map[loanKey]model.LoanRequest),
		markets:   make(map[string]model.Market),
	}
}

func (m *MemoryStore) CreateGame(g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	m.games[g.ID] = cloneGame(g)
	return nil
}

func (m *MemoryStore) GetGame(id string) (*model.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	out := cloneGame(&g)
	return &out, nil
}

func (m *MemoryStore) UpdateGame(g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrNotFound)
	}
	m.games[g.ID] = cloneGame(g)
	return nil
}

func (m *MemoryStore) SaveDecision(fd model.FirmDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[roundKey{fd.GameID, fd.FirmID, fd.Round}] = fd
	return nil
}

func (m *MemoryStore) Decisions(gameID string, round int) ([]model.FirmDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.FirmDecision
	for k, fd := range m.decisions {
		if k.gameID == gameID && k.round == round {
			out = append(out, fd)
		}
	}
	slices.SortFunc(out, func(a, b model.FirmDecision) int { return cmp.Compare(a.FirmID, b.FirmID) })
	return out, nil
}

func (m *MemoryStore) SaveStates(states []model.FirmState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putStates(states)
	return nil
}

func (m *MemoryStore) putStates(states []model.FirmState) {
	for _, st := range states {
		if st.Result != nil {
			res := *st.Result
			st.Result = &res
		}
		m.states[roundKey{st.GameID, st.FirmID, st.Round}] = st
	}
}

func (m *MemoryStore) States(gameID string, round int) ([]model.FirmState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.FirmState
	for k, st := range m.states {
		if k.gameID == gameID && k.round == round {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b model.FirmState) int { return cmp.Compare(a.FirmID, b.FirmID) })
	return out, nil
}

func (m *MemoryStore) SaveLoanRequest(r model.LoanRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := loanKey{roundKey{r.GameID, r.FirmID, r.Round}, r.Type}
	if prev, ok := m.loans[k]; ok {
		r.ID, r.CreatedAt = prev.ID, prev.CreatedAt
	}
	m.loans[k] = r
	return nil
}

func (m *MemoryStore) LoanRequests(gameID string, round int) ([]model.LoanRequest, error) {
	return m.selectLoans(func(r model.LoanRequest) bool {
		return r.GameID == gameID && r.Round == round
	}), nil
}

func (m *MemoryStore) GrantedLoans(gameID string) ([]model.LoanRequest, error) {
	return m.selectLoans(func(r model.LoanRequest) bool {
		return r.GameID == gameID && r.Status.Granted()
	}), nil
}

func (m *MemoryStore) selectLoans(keep func(model.LoanRequest) bool) []model.LoanRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.LoanRequest
	for _, r := range m.loans {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.LoanRequest) int {
		// Equivalent to cmp.Or (Go 1.22+), which the Go 1.21 toolchain lacks.
		if c := cmp.Compare(a.Round, b.Round); c != 0 {
			return c
		}
		if c := cmp.Compare(a.FirmID, b.FirmID); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return out
}

func (m *MemoryStore) SaveMarket(gameID string, mk model.Market) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putMarket(gameID, mk)
	return nil
}

func (m *MemoryStore) putMarket(gameID string, mk model.Market) {
	for _, p := range model.Products {
		s := mk.Get(p)
		s.History = slices.Clone(s.History)
		mk.Set(p, s)
	}
	m.markets[gameID] = mk
}

func (m *MemoryStore) Market(gameID string) (model.Market, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mk, ok := m.markets[gameID]
	if !ok {
		return mk, fmt.Errorf("market of game %s: %w", gameID, ErrNotFound)
	}
	return mk, nil
}

func (m *MemoryStore) SettleRound(g *model.Game, from []model.RoundStatus, states []model.FirmState, mk model.Market) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[g.ID]
	if !ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrNotFound)
	}
	if cur.CurrentRound != g.CurrentRound || !slices.Contains(from, cur.Status) {
		return fmt.Errorf("game %s is round %d %s: %w", g.ID, cur.CurrentRound, cur.Status, ErrConflict)
	}
	m.putStates(states)
	m.putMarket(g.ID, mk)
	m.games[g.ID] = cloneGame(g)
	return nil
}

func (m *MemoryStore) ResetGame(gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.decisions {
		if k.gameID == gameID {
			delete(m.decisions, k)
		}
	}
	for k := range m.states {
		if k.gameID == gameID {
			delete(m.states, k)
		}
	}
	for k := range m.loans {
		if k.gameID == gameID {
			delete(m.loans, k)
		}
	}
	delete(m.markets, gameID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneGame(g *model.Game) model.Game {
	out := *g
	out.Firms = slices.Clone(g.Firms)
	for _, p := range model.Products {
		if d := g.Demand.Get(p); d != nil {
			c := *d
			out.Demand.Set(p, &c)
		}
	}
	return out
}
