package collector

import "FirmSim/internal/model"

// Source defines the reads needed to freeze a round's inputs.
type Source interface {
	GetGame(id string) (*model.Game, error)
	Decisions(gameID string, round int) ([]model.FirmDecision, error)
	States(gameID string, round int) ([]model.FirmState, error)
	LoanRequests(gameID string, round int) ([]model.LoanRequest, error)
	GrantedLoans(gameID string) ([]model.LoanRequest, error)
}
