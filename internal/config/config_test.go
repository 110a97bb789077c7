package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"FirmSim/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Game.ID != "default" || cfg.Game.FinalRound != 6 {
		t.Errorf("game %q final round %d, want default and 6", cfg.Game.ID, cfg.Game.FinalRound)
	}
	if cfg.Game.Rates.ST != 10 || cfg.Game.Rates.LT != 5 || cfg.Game.Rates.Tax != 30 {
		t.Errorf("rates = %+v", cfg.Game.Rates)
	}
	if cfg.Game.Demand.B.Intercept != 60 || cfg.Game.Demand.C.Slope != 0.005 {
		t.Errorf("demand = %+v", cfg.Game.Demand)
	}
	if cfg.Game.Setup.Cash != 29200 || cfg.Game.Setup.Limits.Material != 100000 {
		t.Errorf("setup = %+v", cfg.Game.Setup)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: "123"
schedule:
  close_cron: "0 0 18 * * 5"
game:
  id: spring
  final_round: 3
  rates: {st: 8, lt: 4, tax: 25}
  demand:
    A: {intercept: 55, slope: 0.004, growth: 1.05}
  setup:
    cash: 10000
    fixed_assets: 5000
    equity: 15000
    limits: {machine: 800, labour: 900, material: 100000}
  firms:
    - {id: f1, name: Acme}
    - {id: f2, name: Globex}
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("CRON_CLEAR", "0 0 9 * * 1")
	t.Setenv("GAME_ID", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token" || cfg.Telegram.ChatID != "123" {
		t.Errorf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Schedule.CloseCron != "0 0 18 * * 5" || cfg.Schedule.ClearCron != "0 0 9 * * 1" {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Game.Demand.A.Growth != 1.05 || cfg.Game.Demand.B.Intercept != 60 {
		t.Errorf("demand = %+v", cfg.Game.Demand)
	}
	if cfg.Game.Setup.Cash != 10000 || cfg.Game.Setup.Limits.Machine != 800 {
		t.Errorf("setup = %+v", cfg.Game.Setup)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	g := cfg.NewGame()
	if g.ID != "spring" || g.FinalRound != 3 || len(g.Firms) != 2 {
		t.Errorf("game = %+v", g)
	}
	if g.Demand.A == nil || g.Demand.A.Intercept != 55 || g.Demand.C == nil {
		t.Errorf("game demand = %+v", g.Demand)
	}
	if g.Setup.Sheet.FixedAssets != 5000 {
		t.Errorf("game setup = %+v", g.Setup)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "x" }, "chat_id"},
		{"negative rounds", func(c *Config) { c.Game.FinalRound = -1 }, "final_round"},
		{"tax over 100", func(c *Config) { c.Game.Rates.Tax = 120 }, "rates"},
		{"flat demand", func(c *Config) { c.Game.Demand.B.Slope = 0 }, "demand.B"},
		{"unbalanced setup", func(c *Config) { c.Game.Setup.Cash += 1 }, "does not balance"},
		{"duplicate firm", func(c *Config) {
			c.Game.Firms = append(c.Game.Firms, c.Game.Firms[0], c.Game.Firms[0])
		}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			cfg.Game.Firms = []model.Firm{{ID: "f1"}}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
