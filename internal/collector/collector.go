package collector

import (
	"fmt"
	"log"
	"math"

	"FirmSim/internal/model"
)

// Collector gathers everything the settlement of a game's current round reads.
type Collector struct {
	Source Source
	GameID string
}

// NewCollector creates a new Collector.
func NewCollector(source Source, gameID string) *Collector {
	return &Collector{Source: source, GameID: gameID}
}

// Collect loads the game, the round's decisions, the previous round's states and the loan
// book, and caps each offered sale at the units the firm can actually have on hand.
func (c *Collector) Collect() (*model.RoundInput, error) {
	game, err := c.Source.GetGame(c.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	round := game.CurrentRound

	decisions, err := c.Source.Decisions(c.GameID, round)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	requests, err := c.Source.LoanRequests(c.GameID, round)
	if err != nil {
		return nil, fmt.Errorf("load loan requests: %w", err)
	}
	granted, err := c.Source.GrantedLoans(c.GameID)
	if err != nil {
		return nil, fmt.Errorf("load granted loans: %w", err)
	}

	prev := make(map[string]model.FirmState)
	if round > 0 {
		states, err := c.Source.States(c.GameID, round-1)
		if err != nil {
			return nil, fmt.Errorf("load states of round %d: %w", round-1, err)
		}
		for _, st := range states {
			prev[st.FirmID] = st
		}
	}
	for _, f := range game.Firms {
		if _, ok := prev[f.ID]; !ok && round > 1 {
			log.Printf("[WARN] firm %s has no state for round %d, starting from setup", f.ID, round-1)
		}
	}

	in := &model.RoundInput{
		Game:       game,
		Round:      round,
		Decisions:  make([]model.FirmDecision, len(decisions)),
		PrevStates: prev,
		Requests:   requests,
		Granted:    granted,
	}
	for i, fd := range decisions {
		var inv model.Inventory
		if st, ok := prev[fd.FirmID]; ok {
			inv = st.Inventory
		}
		in.Decisions[i] = capSales(fd, inv)
	}

	log.Printf("[INFO] collected round %d of %s: %d decisions, %d loan requests",
		round, c.GameID, len(decisions), len(requests))
	return in, nil
}

// capSales limits each product's offered sales to produced plus carried units and
// coerces the decision's numbers.
func capSales(fd model.FirmDecision, inv model.Inventory) model.FirmDecision {
	fd.Data = fd.Data.Normalized()
	for _, p := range model.Products {
		available := fd.Data.Qty.Get(p) + int(math.Floor(model.NonNeg(inv.Get(p).Units)))
		if offered := fd.Data.Sales.Get(p); offered > available {
			log.Printf("[INFO] firm %s offers %d %s but holds %d, capping", fd.FirmID, offered, p, available)
			fd.Data.Sales.Set(p, available)
		}
	}
	return fd
}
