package round

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/robfig/cron/v3"

	"FirmSim/internal/notifier"
)

// Scheduler runs a game's round deadlines on cron and answers chat commands.
type Scheduler struct {
	Cron   *cron.Cron
	Rounds *Orchestrator
	GameID string
	Ctx    context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, rounds *Orchestrator, gameID string) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Rounds: rounds,
		GameID: gameID,
		Ctx:    ctx,
	}
}

// RegisterAll registers the submission deadline and the automatic clearing.
// An empty spec leaves that step to manual commands.
func (s *Scheduler) RegisterAll(closeCron, clearCron string) error {
	if closeCron != "" {
		if _, err := s.Cron.AddFunc(closeCron, s.closeTask); err != nil {
			return fmt.Errorf("register close task: %w", err)
		}
	}
	if clearCron != "" {
		if _, err := s.Cron.AddFunc(clearCron, s.clearTask); err != nil {
			return fmt.Errorf("register clear task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) closeTask() {
	log.Println("[INFO] submission deadline reached")
	if err := s.Rounds.Close(s.GameID); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			log.Printf("[INFO] nothing to close: %v", err)
			return
		}
		log.Printf("[ERROR] close round: %v", err)
	}
}

func (s *Scheduler) clearTask() {
	log.Println("[INFO] running scheduled clearing")
	if _, err := s.Rounds.Clear(s.GameID); err != nil {
		if errors.Is(err, ErrRoundNotClosed) {
			log.Printf("[INFO] nothing to clear: %v", err)
			return
		}
		log.Printf("[ERROR] clear round: %v", err)
		s.Rounds.notify(fmt.Sprintf("❌ Scheduled clearing failed: %v", err))
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help
	}
	switch fields[0] {
	case "/status":
		reply, err := s.Rounds.Status(s.GameID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return reply
	case "/open":
		return s.reply(s.Rounds.Advance(s.GameID))
	case "/close":
		return s.reply(s.Rounds.Close(s.GameID))
	case "/suggest":
		reqs, err := s.Rounds.SuggestLoans(s.GameID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ %d loan requests approved at suggested rates", len(reqs))
	case "/publish":
		return s.reply(s.Rounds.PublishLoans(s.GameID))
	case "/clear":
		// Clear sends its own report.
		_, err := s.Rounds.Clear(s.GameID)
		return s.reply(err)
	case "/leaderboard":
		rows, err := s.Rounds.Leaderboard(s.GameID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return notifier.FormatLeaderboard(rows)
	case "/ratings":
		ratings, err := s.Rounds.Ratings(s.GameID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return notifier.FormatRatings(ratings)
	default:
		return help
	}
}

func (s *Scheduler) reply(err error) string {
	if err != nil {
		return "❌ " + err.Error()
	}
	if s.Rounds.Notifier != nil {
		return ""
	}
	reply, err := s.Rounds.Status(s.GameID)
	if err != nil {
		return "❌ " + err.Error()
	}
	return reply
}

const help = "Available commands:\n" +
	"• /status\n• /open\n• /close\n• /suggest\n• /publish\n• /clear\n• /leaderboard\n• /ratings"
