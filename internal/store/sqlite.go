package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"FirmSim/internal/model"
)

// SQLiteStore persists games to a SQLite database. Nested records are stored as JSON columns.
type SQLiteStore struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			current_round   INTEGER NOT NULL,
			final_round     INTEGER NOT NULL,
			round_status    TEXT NOT NULL,
			rates_json      TEXT NOT NULL,
			parameters_json TEXT NOT NULL,
			setup_json      TEXT NOT NULL,
			firms_json      TEXT NOT NULL,
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			game_id   TEXT NOT NULL,
			firm_id   TEXT NOT NULL,
			round     INTEGER NOT NULL,
			data_json TEXT NOT NULL,
			PRIMARY KEY (game_id, firm_id, round)
		)`,

		`CREATE TABLE IF NOT EXISTS firm_states (
			game_id    TEXT NOT NULL,
			firm_id    TEXT NOT NULL,
			round      INTEGER NOT NULL,
			cash       REAL,
			net_income REAL,
			state_json TEXT NOT NULL,
			PRIMARY KEY (game_id, firm_id, round)
		)`,

		`CREATE TABLE IF NOT EXISTS loan_requests (
			id               TEXT PRIMARY KEY,
			game_id          TEXT NOT NULL,
			firm_id          TEXT NOT NULL,
			round            INTEGER NOT NULL,
			loan_type        TEXT NOT NULL,
			requested_amount REAL NOT NULL,
			approved_amount  REAL NOT NULL,
			approved_rate    REAL NOT NULL,
			approved_term    INTEGER NOT NULL,
			status           TEXT NOT NULL,
			created_at       INTEGER NOT NULL,
			UNIQUE (game_id, firm_id, round, loan_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_game_round ON loan_requests(game_id, round)`,

		`CREATE TABLE IF NOT EXISTS market_series (
			game_id     TEXT NOT NULL,
			product     TEXT NOT NULL,
			series_json TEXT NOT NULL,
			PRIMARY KEY (game_id, product)
		)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec %q: %w", q[:40], err)
		}
	}
	return nil
}

type gameRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	CurrentRound   int    `db:"current_round"`
	FinalRound     int    `db:"final_round"`
	Status         string `db:"round_status"`
	RatesJSON      string `db:"rates_json"`
	ParametersJSON string `db:"parameters_json"`
	SetupJSON      string `db:"setup_json"`
	FirmsJSON      string `db:"firms_json"`
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
}

func toGameRow(g *model.Game) (gameRow, error) {
	row := gameRow{
		ID:           g.ID,
		Name:         g.Name,
		CurrentRound: g.CurrentRound,
		FinalRound:   g.FinalRound,
		Status:       string(g.Status),
		CreatedAt:    g.CreatedAt.Unix(),
		UpdatedAt:    g.UpdatedAt.Unix(),
	}
	var err error
	if row.RatesJSON, err = encode(g.Rates); err != nil {
		return row, err
	}
	if row.ParametersJSON, err = encode(g.Demand); err != nil {
		return row, err
	}
	if row.SetupJSON, err = encode(g.Setup); err != nil {
		return row, err
	}
	if row.FirmsJSON, err = encode(g.Firms); err != nil {
		return row, err
	}
	return row, nil
}

func (r gameRow) game() (*model.Game, error) {
	g := &model.Game{
		ID:           r.ID,
		Name:         r.Name,
		CurrentRound: r.CurrentRound,
		FinalRound:   r.FinalRound,
		Status:       model.RoundStatus(r.Status),
		CreatedAt:    time.Unix(r.CreatedAt, 0),
		UpdatedAt:    time.Unix(r.UpdatedAt, 0),
	}
	if err := json.Unmarshal([]byte(r.RatesJSON), &g.Rates); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if err := json.Unmarshal([]byte(r.ParametersJSON), &g.Demand); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}
	if err := json.Unmarshal([]byte(r.SetupJSON), &g.Setup); err != nil {
		return nil, fmt.Errorf("decode setup: %w", err)
	}
	if err := json.Unmarshal([]byte(r.FirmsJSON), &g.Firms); err != nil {
		return nil, fmt.Errorf("decode firms: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) CreateGame(g *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := toGameRow(g)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExec(`INSERT INTO games
		(id, name, current_round, final_round, round_status,
		 rates_json, parameters_json, setup_json, firms_json, created_at, updated_at)
		VALUES (:id, :name, :current_round, :final_round, :round_status,
		 :rates_json, :parameters_json, :setup_json, :firms_json, :created_at, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetGame(id string) (*model.Game, error) {
	var row gameRow
	err := s.db.Get(&row, `SELECT * FROM games WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select game %s: %w", id, err)
	}
	return row.game()
}

func (s *SQLiteStore) UpdateGame(g *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := toGameRow(g)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExec(`UPDATE games SET
		name = :name, current_round = :current_round, final_round = :final_round,
		round_status = :round_status, rates_json = :rates_json, parameters_json = :parameters_json,
		setup_json = :setup_json, firms_json = :firms_json, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("update game %s: %w", g.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("game %s: %w", g.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) SaveDecision(fd model.FirmDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encode(fd.Data)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO decisions (game_id, firm_id, round, data_json)
		VALUES (?,?,?,?)
		ON CONFLICT (game_id, firm_id, round) DO UPDATE SET data_json = excluded.data_json`,
		fd.GameID, fd.FirmID, fd.Round, data)
	if err != nil {
		return fmt.Errorf("save decision %s/%d: %w", fd.FirmID, fd.Round, err)
	}
	return nil
}

func (s *SQLiteStore) Decisions(gameID string, round int) ([]model.FirmDecision, error) {
	var rows []struct {
		FirmID string `db:"firm_id"`
		Data   string `db:"data_json"`
	}
	err := s.db.Select(&rows, `SELECT firm_id, data_json FROM decisions
		WHERE game_id = ? AND round = ? ORDER BY firm_id`, gameID, round)
	if err != nil {
		return nil, fmt.Errorf("select decisions: %w", err)
	}

	out := make([]model.FirmDecision, 0, len(rows))
	for _, r := range rows {
		fd := model.FirmDecision{GameID: gameID, FirmID: r.FirmID, Round: round}
		if err := json.Unmarshal([]byte(r.Data), &fd.Data); err != nil {
			return nil, fmt.Errorf("decode decision %s: %w", r.FirmID, err)
		}
		out = append(out, fd)
	}
	return out, nil
}

func (s *SQLiteStore) SaveStates(states []model.FirmState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveStates(tx, states); err != nil {
		return err
	}
	return tx.Commit()
}

func saveStates(tx *sqlx.Tx, states []model.FirmState) error {
	stmt, err := tx.Preparex(`INSERT INTO firm_states (game_id, firm_id, round, cash, net_income, state_json)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT (game_id, firm_id, round) DO UPDATE SET
			cash = excluded.cash, net_income = excluded.net_income, state_json = excluded.state_json`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range states {
		data, err := encode(st)
		if err != nil {
			return err
		}
		netIncome := 0.0
		if st.Result != nil {
			netIncome = st.Result.Income.NetIncome
		}
		if _, err := stmt.Exec(st.GameID, st.FirmID, st.Round, st.Position.Sheet.Cash, netIncome, data); err != nil {
			return fmt.Errorf("save state %s/%d: %w", st.FirmID, st.Round, err)
		}
	}
	return nil
}

func (s *SQLiteStore) States(gameID string, round int) ([]model.FirmState, error) {
	var rows []string
	err := s.db.Select(&rows, `SELECT state_json FROM firm_states
		WHERE game_id = ? AND round = ? ORDER BY firm_id`, gameID, round)
	if err != nil {
		return nil, fmt.Errorf("select states: %w", err)
	}

	out := make([]model.FirmState, 0, len(rows))
	for _, data := range rows {
		var st model.FirmState
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}

type loanRow struct {
	ID              string  `db:"id"`
	GameID          string  `db:"game_id"`
	FirmID          string  `db:"firm_id"`
	Round           int     `db:"round"`
	Type            string  `db:"loan_type"`
	RequestedAmount float64 `db:"requested_amount"`
	ApprovedAmount  float64 `db:"approved_amount"`
	ApprovedRate    float64 `db:"approved_rate"`
	ApprovedTerm    int     `db:"approved_term"`
	Status          string  `db:"status"`
	CreatedAt       int64   `db:"created_at"`
}

func (r loanRow) request() model.LoanRequest {
	return model.LoanRequest{
		ID:              r.ID,
		GameID:          r.GameID,
		FirmID:          r.FirmID,
		Round:           r.Round,
		Type:            model.LoanType(r.Type),
		RequestedAmount: r.RequestedAmount,
		ApprovedAmount:  r.ApprovedAmount,
		ApprovedRate:    r.ApprovedRate,
		ApprovedTerm:    r.ApprovedTerm,
		Status:          model.LoanStatus(r.Status),
		CreatedAt:       time.Unix(r.CreatedAt, 0),
	}
}

// SaveLoanRequest inserts the request, or replaces the firm's request of the same type and round.
func (s *SQLiteStore) SaveLoanRequest(r model.LoanRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.NamedExec(`INSERT INTO loan_requests
		(id, game_id, firm_id, round, loan_type, requested_amount,
		 approved_amount, approved_rate, approved_term, status, created_at)
		VALUES (:id, :game_id, :firm_id, :round, :loan_type, :requested_amount,
		 :approved_amount, :approved_rate, :approved_term, :status, :created_at)
		ON CONFLICT (game_id, firm_id, round, loan_type) DO UPDATE SET
			requested_amount = excluded.requested_amount, approved_amount = excluded.approved_amount,
			approved_rate = excluded.approved_rate, approved_term = excluded.approved_term,
			status = excluded.status`,
		loanRow{
			ID:              r.ID,
			GameID:          r.GameID,
			FirmID:          r.FirmID,
			Round:           r.Round,
			Type:            string(r.Type),
			RequestedAmount: r.RequestedAmount,
			ApprovedAmount:  r.ApprovedAmount,
			ApprovedRate:    r.ApprovedRate,
			ApprovedTerm:    r.ApprovedTerm,
			Status:          string(r.Status),
			CreatedAt:       r.CreatedAt.Unix(),
		})
	if err != nil {
		return fmt.Errorf("save loan request %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) LoanRequests(gameID string, round int) ([]model.LoanRequest, error) {
	return s.selectLoans(`SELECT * FROM loan_requests WHERE game_id = ? AND round = ?
		ORDER BY firm_id, loan_type`, gameID, round)
}

func (s *SQLiteStore) GrantedLoans(gameID string) ([]model.LoanRequest, error) {
	return s.selectLoans(`SELECT * FROM loan_requests WHERE game_id = ? AND status IN (?, ?)
		ORDER BY round, firm_id, loan_type`, gameID, model.LoanApproved, model.LoanPartial)
}

func (s *SQLiteStore) selectLoans(query string, args ...any) ([]model.LoanRequest, error) {
	var rows []loanRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("select loan requests: %w", err)
	}
	out := make([]model.LoanRequest, len(rows))
	for i, r := range rows {
		out[i] = r.request()
	}
	return out, nil
}

func (s *SQLiteStore) SaveMarket(gameID string, m model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveMarket(tx, gameID, m); err != nil {
		return err
	}
	return tx.Commit()
}

func saveMarket(tx *sqlx.Tx, gameID string, m model.Market) error {
	for _, p := range model.Products {
		data, err := encode(m.Get(p))
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO market_series (game_id, product, series_json) VALUES (?,?,?)
			ON CONFLICT (game_id, product) DO UPDATE SET series_json = excluded.series_json`,
			gameID, string(p), data)
		if err != nil {
			return fmt.Errorf("save market %s: %w", p, err)
		}
	}
	return nil
}

// SettleRound claims the round with a conditional status update before writing anything else,
// so a second clearing of the same round, from this process or another, gets ErrConflict.
func (s *SQLiteStore) SettleRound(g *model.Game, from []model.RoundStatus, states []model.FirmState, m model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}
	query, args, err := sqlx.In(`UPDATE games SET round_status = ?, updated_at = ?
		WHERE id = ? AND current_round = ? AND round_status IN (?)`,
		string(g.Status), g.UpdatedAt.Unix(), g.ID, g.CurrentRound, statuses)
	if err != nil {
		return fmt.Errorf("build settle query: %w", err)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(tx.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("claim round %d of %s: %w", g.CurrentRound, g.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("round %d of %s: %w", g.CurrentRound, g.ID, ErrConflict)
	}
	if err := saveStates(tx, states); err != nil {
		return err
	}
	if err := saveMarket(tx, g.ID, m); err != nil {
		return err
	}
	return tx.Commit()
}

// Market returns the game's series. A game without stored series yields ErrNotFound.
func (s *SQLiteStore) Market(gameID string) (model.Market, error) {
	var m model.Market
	var rows []struct {
		Product string `db:"product"`
		Data    string `db:"series_json"`
	}
	if err := s.db.Select(&rows, `SELECT product, series_json FROM market_series WHERE game_id = ?`, gameID); err != nil {
		return m, fmt.Errorf("select market: %w", err)
	}
	if len(rows) == 0 {
		return m, fmt.Errorf("market of game %s: %w", gameID, ErrNotFound)
	}
	for _, r := range rows {
		var series model.MarketSeries
		if err := json.Unmarshal([]byte(r.Data), &series); err != nil {
			return m, fmt.Errorf("decode market %s: %w", r.Product, err)
		}
		m.Set(model.Product(r.Product), series)
	}
	return m, nil
}

func (s *SQLiteStore) ResetGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"decisions", "firm_states", "loan_requests", "market_series"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE game_id = ?`, gameID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %T: %w", v, err)
	}
	return string(b), nil
}
