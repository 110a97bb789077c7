package model

import "time"

// RoundStatus is the lifecycle state of the current round.
type RoundStatus string

const (
	StatusSetup         RoundStatus = "setup"
	StatusOpen          RoundStatus = "open"
	StatusClosed        RoundStatus = "closed"
	StatusLoansReviewed RoundStatus = "loans_reviewed"
	StatusCleared       RoundStatus = "cleared"
	StatusFinished      RoundStatus = "finished"
)

// Game is the configuration and progress of one classroom game.
type Game struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	CurrentRound int         `json:"current_round"`
	FinalRound   int         `json:"final_round"`
	Status       RoundStatus `json:"round_status"`
	Rates        Rates       `json:"rates"`
	Demand       DemandSet   `json:"parameters"`
	Setup        Position    `json:"setup"`
	Firms        []Firm      `json:"firms"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsFinalRound reports whether the current round triggers final settlement.
func (g *Game) IsFinalRound() bool {
	return g.FinalRound > 0 && g.CurrentRound >= g.FinalRound
}

// RoundInput is everything the settlement of one round reads, frozen at clearing time.
type RoundInput struct {
	Game       *Game
	Round      int
	Decisions  []FirmDecision
	PrevStates map[string]FirmState
	Requests   []LoanRequest
	Granted    []LoanRequest
}
