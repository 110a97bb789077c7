package round

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"FirmSim/internal/collector"
	"FirmSim/internal/loans"
	"FirmSim/internal/market"
	"FirmSim/internal/model"
	"FirmSim/internal/notifier"
	"FirmSim/internal/rating"
	"FirmSim/internal/store"
)

var (
	ErrNoDecisions       = errors.New("no decisions submitted for this round")
	ErrRoundNotClosed    = errors.New("round is not closed")
	ErrInvalidTransition = errors.New("invalid round transition")
	ErrGameOver          = errors.New("game is complete")
)

// Notifier delivers round reports. Nil disables delivery.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Orchestrator drives a game through its rounds: setup, open, closed, loans_reviewed, cleared.
// Transitions are serialized; the settlement math itself lives in the market and simulation packages.
type Orchestrator struct {
	Store    store.Store
	Notifier Notifier
	Ctx      context.Context
	Now      func() time.Time

	mu sync.Mutex
}

// NewOrchestrator creates an Orchestrator. n may be nil.
func NewOrchestrator(ctx context.Context, st store.Store, n Notifier) *Orchestrator {
	return &Orchestrator{Store: st, Notifier: n, Ctx: ctx, Now: time.Now}
}

// Outcome is what a cleared round produced.
type Outcome struct {
	Round    int                                    `json:"round"`
	Final    bool                                   `json:"final"`
	Clearing model.PerProduct[model.ClearingResult] `json:"clearing"`
	States   []model.FirmState                      `json:"states"`
}

// NewGame stores g in setup with its round-0 states and the default market series.
func (o *Orchestrator) NewGame(g *model.Game) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.Now()
	g.CurrentRound = 0
	g.Status = model.StatusSetup
	g.CreatedAt, g.UpdatedAt = now, now
	if err := o.Store.CreateGame(g); err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	if err := o.seed(g); err != nil {
		return err
	}
	log.Printf("[INFO] game %s created with %d firms", g.ID, len(g.Firms))
	return nil
}

// Reset wipes every decision, state, loan request and market row of the game and
// returns it to setup with freshly seeded round-0 states.
func (o *Orchestrator) Reset(gameID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if err := o.Store.ResetGame(gameID); err != nil {
		return fmt.Errorf("reset game: %w", err)
	}
	g.CurrentRound = 0
	g.Status = model.StatusSetup
	if err := o.saveGame(g); err != nil {
		return err
	}
	if err := o.seed(g); err != nil {
		return err
	}
	log.Printf("[INFO] game %s reset", gameID)
	return nil
}

func (o *Orchestrator) seed(g *model.Game) error {
	states := make([]model.FirmState, len(g.Firms))
	for i, f := range g.Firms {
		states[i] = model.FirmState{GameID: g.ID, FirmID: f.ID, Round: 0, Position: g.Setup}
	}
	if err := o.Store.SaveStates(states); err != nil {
		return fmt.Errorf("seed states: %w", err)
	}
	if err := o.Store.SaveMarket(g.ID, market.DefaultSeries()); err != nil {
		return fmt.Errorf("seed market: %w", err)
	}
	return nil
}

// Advance opens the next round for submissions. Valid from setup or cleared.
func (o *Orchestrator) Advance(gameID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if g.Status == model.StatusFinished || (g.FinalRound > 0 && g.CurrentRound >= g.FinalRound) {
		return fmt.Errorf("%w: %d rounds played", ErrGameOver, g.CurrentRound)
	}
	if err := transition(g, model.StatusOpen, model.StatusSetup, model.StatusCleared); err != nil {
		return err
	}
	g.CurrentRound++
	if err := o.saveGame(g); err != nil {
		return err
	}
	log.Printf("[INFO] game %s: round %d open", gameID, g.CurrentRound)
	o.notify(fmt.Sprintf("🟢 <b>Round %d is open</b> for submissions.", g.CurrentRound))
	return nil
}

// Close stops accepting decisions for the current round.
func (o *Orchestrator) Close(gameID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if err := transition(g, model.StatusClosed, model.StatusOpen); err != nil {
		return err
	}
	if err := o.saveGame(g); err != nil {
		return err
	}
	log.Printf("[INFO] game %s: round %d closed", gameID, g.CurrentRound)
	o.notify(fmt.Sprintf("🔒 <b>Round %d closed</b>. Loan review pending.", g.CurrentRound))
	return nil
}

// PublishLoans marks the current round's loan requests as reviewed.
func (o *Orchestrator) PublishLoans(gameID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if err := transition(g, model.StatusLoansReviewed, model.StatusClosed); err != nil {
		return err
	}
	if err := o.saveGame(g); err != nil {
		return err
	}
	reqs, err := o.Store.LoanRequests(gameID, g.CurrentRound)
	if err != nil {
		return fmt.Errorf("load loan requests: %w", err)
	}
	log.Printf("[INFO] game %s: %d loan decisions published for round %d", gameID, len(reqs), g.CurrentRound)
	o.notify(notifier.FormatLoanBook(g.CurrentRound, reqs))
	return nil
}

// SubmitDecision stores a firm's decision for the open round and files loan requests for any
// new borrowing it asks for.
func (o *Orchestrator) SubmitDecision(fd model.FirmDecision) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(fd.GameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if g.Status != model.StatusOpen {
		return fmt.Errorf("%w: round %d is %s", ErrInvalidTransition, g.CurrentRound, g.Status)
	}
	if !hasFirm(g, fd.FirmID) {
		return fmt.Errorf("firm %s: %w", fd.FirmID, store.ErrNotFound)
	}
	fd.Round = g.CurrentRound
	fd.Data = fd.Data.Normalized()
	if err := o.Store.SaveDecision(fd); err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	reqs := loans.FromDecision(fd, o.Now())
	withdrawn, err := o.withdrawn(fd, reqs)
	if err != nil {
		return err
	}
	for _, r := range append(reqs, withdrawn...) {
		if err := o.Store.SaveLoanRequest(r); err != nil {
			return fmt.Errorf("save loan request: %w", err)
		}
	}
	return nil
}

// withdrawn returns the firm's earlier requests for the round that a resubmission no longer
// asks for, denied with nothing requested.
func (o *Orchestrator) withdrawn(fd model.FirmDecision, keep []model.LoanRequest) ([]model.LoanRequest, error) {
	existing, err := o.Store.LoanRequests(fd.GameID, fd.Round)
	if err != nil {
		return nil, fmt.Errorf("load loan requests: %w", err)
	}
	var out []model.LoanRequest
	for _, r := range existing {
		if r.FirmID != fd.FirmID || slices.ContainsFunc(keep, func(k model.LoanRequest) bool { return k.Type == r.Type }) {
			continue
		}
		r.RequestedAmount = 0
		r.ApprovedAmount, r.ApprovedRate, r.ApprovedTerm = 0, 0, 0
		r.Status = model.LoanDenied
		out = append(out, r)
	}
	return out, nil
}

// ReviewLoan resolves a firm's request of the given type for the current round.
func (o *Orchestrator) ReviewLoan(gameID, firmID string, t model.LoanType, status model.LoanStatus, amount, rate float64, term int) (model.LoanRequest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return model.LoanRequest{}, fmt.Errorf("load game: %w", err)
	}
	if g.Status != model.StatusClosed {
		return model.LoanRequest{}, fmt.Errorf("%w: loans are reviewed while the round is closed", ErrRoundNotClosed)
	}
	req, err := o.findRequest(g, firmID, t)
	if err != nil {
		return model.LoanRequest{}, err
	}
	req, err = loans.Review(req, status, amount, rate, term)
	if err != nil {
		return model.LoanRequest{}, err
	}
	if err := o.Store.SaveLoanRequest(req); err != nil {
		return model.LoanRequest{}, fmt.Errorf("save loan request: %w", err)
	}
	return req, nil
}

// SuggestLoans approves every pending request in full at the rate the firm's credit rating implies.
func (o *Orchestrator) SuggestLoans(gameID string) ([]model.LoanRequest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if g.Status != model.StatusClosed {
		return nil, fmt.Errorf("%w: loans are reviewed while the round is closed", ErrRoundNotClosed)
	}
	ratings, err := o.ratings(g)
	if err != nil {
		return nil, err
	}
	reqs, err := o.Store.LoanRequests(gameID, g.CurrentRound)
	if err != nil {
		return nil, fmt.Errorf("load loan requests: %w", err)
	}

	var out []model.LoanRequest
	for _, r := range reqs {
		if r.Status != model.LoanPending {
			continue
		}
		r = loans.Suggest(r, ratings[r.FirmID])
		if err := o.Store.SaveLoanRequest(r); err != nil {
			return nil, fmt.Errorf("save loan request: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Ratings returns each firm's credit rating from its state at the end of the previous round.
func (o *Orchestrator) Ratings(gameID string) (map[string]model.CreditRating, error) {
	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	return o.ratings(g)
}

func (o *Orchestrator) ratings(g *model.Game) (map[string]model.CreditRating, error) {
	states, err := o.Store.States(g.ID, max(0, g.CurrentRound-1))
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	byFirm := make(map[string]*model.FirmState, len(states))
	for i := range states {
		byFirm[states[i].FirmID] = &states[i]
	}
	out := make(map[string]model.CreditRating, len(g.Firms))
	for _, f := range g.Firms {
		out[f.ID] = rating.Evaluate(rating.FromState(byFirm[f.ID]), g.Rates)
	}
	return out, nil
}

// Clear settles the closed round: it freezes the inputs, applies the loan book, clears every
// product once over all decisions, settles each firm at the clearing prices, carries forward
// firms that did not submit and rolls the market forecast.
func (o *Orchestrator) Clear(gameID string) (*Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if g.Status != model.StatusClosed && g.Status != model.StatusLoansReviewed {
		return nil, fmt.Errorf("%w: round %d is %s", ErrRoundNotClosed, g.CurrentRound, g.Status)
	}

	in, err := collector.NewCollector(o.Store, gameID).Collect()
	if err != nil {
		return nil, fmt.Errorf("collect round inputs: %w", err)
	}
	if len(in.Decisions) == 0 {
		return nil, fmt.Errorf("round %d: %w", in.Round, ErrNoDecisions)
	}

	decisions, terms := loans.Apply(in.Decisions, in.Requests, g.Rates)
	clearing := market.ClearMarket(g.Demand, decisions)
	for _, p := range model.Products {
		c := clearing.Get(p)
		log.Printf("[INFO] round %d product %s cleared at %.2f for %.0f units", in.Round, p, c.Price, c.Qty)
	}

	final := g.IsFinalRound()
	submitted := make(map[string]bool, len(decisions))
	states := make([]model.FirmState, 0, len(g.Firms))
	for _, fd := range decisions {
		submitted[fd.FirmID] = true
		st := market.SettleFirm(market.Settlement{
			Decision:         fd,
			Prev:             prevState(in.PrevStates, fd.FirmID),
			Setup:            g.Setup,
			Rates:            g.Rates,
			LoanTerms:        terms[fd.FirmID],
			MandatoryPayment: loans.MandatoryPayment(in.Granted, fd.FirmID, in.Round),
			FinalRound:       final,
		}, clearing)
		st.GameID = gameID
		logSettlement(st)
		states = append(states, st)
	}
	for _, f := range g.Firms {
		if submitted[f.ID] {
			continue
		}
		if !final {
			log.Printf("[INFO] firm %s submitted nothing for round %d, carrying forward", f.ID, in.Round)
			states = append(states, market.CarryForward(gameID, f.ID, in.Round, prevState(in.PrevStates, f.ID), g.Setup))
			continue
		}
		// The final settlement still liquidates and repays a silent firm.
		log.Printf("[INFO] firm %s submitted nothing for the final round, settling an idle year", f.ID)
		st := market.SettleFirm(market.Settlement{
			Decision:   model.FirmDecision{GameID: gameID, FirmID: f.ID, Round: in.Round},
			Prev:       prevState(in.PrevStates, f.ID),
			Setup:      g.Setup,
			Rates:      g.Rates,
			FinalRound: true,
		}, clearing)
		st.Carried = true
		logSettlement(st)
		states = append(states, st)
	}

	series, err := o.Store.Market(gameID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[WARN] game %s has no market series, starting from defaults", gameID)
		series = market.DefaultSeries()
	} else if err != nil {
		return nil, fmt.Errorf("load market: %w", err)
	}
	rolled := market.RollSeries(series, clearing, g.Demand, in.Round)

	from := []model.RoundStatus{model.StatusClosed, model.StatusLoansReviewed}
	g.Status = model.StatusCleared
	if final {
		g.Status = model.StatusFinished
	}
	g.UpdatedAt = o.Now()
	if err := o.Store.SettleRound(g, from, states, rolled); err != nil {
		return nil, fmt.Errorf("settle round %d: %w", in.Round, err)
	}
	log.Printf("[INFO] game %s: round %d %s", gameID, in.Round, g.Status)

	out := &Outcome{Round: in.Round, Final: final, Clearing: clearing, States: states}
	o.notify(notifier.FormatClearingReport(g, in.Round, clearing))
	return out, nil
}

// Leaderboard ranks firms by EVA over their latest settled round.
func (o *Orchestrator) Leaderboard(gameID string) ([]model.Standing, error) {
	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	round := g.CurrentRound
	if g.Status != model.StatusCleared && g.Status != model.StatusFinished {
		round--
	}
	if round <= 0 {
		return nil, nil
	}
	states, err := o.Store.States(gameID, round)
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	return Rank(g, states), nil
}

// Status summarizes the game for a chat reply.
func (o *Orchestrator) Status(gameID string) (string, error) {
	g, err := o.Store.GetGame(gameID)
	if err != nil {
		return "", fmt.Errorf("load game: %w", err)
	}
	decisions, err := o.Store.Decisions(gameID, g.CurrentRound)
	if err != nil {
		return "", fmt.Errorf("load decisions: %w", err)
	}
	return notifier.FormatRoundStatus(g, len(decisions)), nil
}

func (o *Orchestrator) findRequest(g *model.Game, firmID string, t model.LoanType) (model.LoanRequest, error) {
	reqs, err := o.Store.LoanRequests(g.ID, g.CurrentRound)
	if err != nil {
		return model.LoanRequest{}, fmt.Errorf("load loan requests: %w", err)
	}
	for _, r := range reqs {
		if r.FirmID == firmID && r.Type == t {
			return r, nil
		}
	}
	return model.LoanRequest{}, fmt.Errorf("%s loan of firm %s in round %d: %w", t, firmID, g.CurrentRound, store.ErrNotFound)
}

func (o *Orchestrator) saveGame(g *model.Game) error {
	g.UpdatedAt = o.Now()
	if err := o.Store.UpdateGame(g); err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

func (o *Orchestrator) notify(text string) {
	if o.Notifier == nil {
		return
	}
	if err := o.Notifier.SendWithRetry(o.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

func transition(g *model.Game, to model.RoundStatus, from ...model.RoundStatus) error {
	for _, f := range from {
		if g.Status == f {
			g.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, to)
}

func prevState(states map[string]model.FirmState, firmID string) *model.FirmState {
	st, ok := states[firmID]
	if !ok {
		return nil
	}
	return &st
}

func hasFirm(g *model.Game, firmID string) bool {
	for _, f := range g.Firms {
		if f.ID == firmID {
			return true
		}
	}
	return false
}

func logSettlement(st model.FirmState) {
	res := st.Result
	switch {
	case res.Insolvent:
		log.Printf("[WARN] firm %s insolvent at final settlement, %.2f of debt written off", st.FirmID, res.DebtWrittenOff)
	case res.CashShortfall:
		log.Printf("[WARN] firm %s ends round %d with negative cash %.2f after liquidation", st.FirmID, st.Round, res.Sheet.Cash)
	case res.Liquidation.Loss > 0:
		log.Printf("[INFO] firm %s forced to liquidate, loss %.2f", st.FirmID, res.Liquidation.Loss)
	}
	if res.Capacity.Machine.IsOver || res.Capacity.Labour.IsOver {
		log.Printf("[WARN] firm %s exceeded capacity: machine %.0f/%.0f labour %.0f/%.0f", st.FirmID,
			res.Capacity.Machine.Used, res.Capacity.Machine.Limit, res.Capacity.Labour.Used, res.Capacity.Labour.Limit)
	}
}
