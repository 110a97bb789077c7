package store

import (
	"errors"

	"FirmSim/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the game moved on since it was read.
	ErrConflict = errors.New("game changed since it was read")
)

// Store persists games and everything a round reads or writes.
// Decisions, states and loan requests are keyed by game, firm and round; saving the same key
// again replaces the previous record.
type Store interface {
	CreateGame(g *model.Game) error
	GetGame(id string) (*model.Game, error)
	UpdateGame(g *model.Game) error

	SaveDecision(fd model.FirmDecision) error
	Decisions(gameID string, round int) ([]model.FirmDecision, error)

	SaveStates(states []model.FirmState) error
	States(gameID string, round int) ([]model.FirmState, error)

	SaveLoanRequest(r model.LoanRequest) error
	LoanRequests(gameID string, round int) ([]model.LoanRequest, error)
	GrantedLoans(gameID string) ([]model.LoanRequest, error)

	SaveMarket(gameID string, m model.Market) error
	Market(gameID string) (model.Market, error)

	// SettleRound atomically stores a cleared round: the settled states, the rolled market and
	// g's new status. It returns ErrConflict unless the stored game is still in g.CurrentRound
	// with one of the from statuses.
	SettleRound(g *model.Game, from []model.RoundStatus, states []model.FirmState, m model.Market) error

	// ResetGame deletes the game's decisions, states, loan requests and market series.
	ResetGame(gameID string) error
	Close() error
}
