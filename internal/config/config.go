package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"FirmSim/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		CloseCron string `yaml:"close_cron"`
		ClearCron string `yaml:"clear_cron"`
	} `yaml:"schedule"`
	Game  GameConfig `yaml:"game"`
	Proxy string     `yaml:"proxy"`
}

// GameConfig is the setup a new game is created from.
type GameConfig struct {
	ID         string                               `yaml:"id"`
	Name       string                               `yaml:"name"`
	FinalRound int                                  `yaml:"final_round"`
	Rates      model.Rates                          `yaml:"rates"`
	Demand     model.PerProduct[model.DemandParams] `yaml:"demand"`
	Setup      SetupConfig                          `yaml:"setup"`
	Firms      []model.Firm                         `yaml:"firms"`
}

// SetupConfig is the opening balance sheet and capacity every firm starts with.
type SetupConfig struct {
	model.BalanceSheet `yaml:",inline"`
	Limits             model.Limits `yaml:"limits"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("GAME_ID"); v != "" {
		cfg.Game.ID = v
	}
	if v := os.Getenv("CRON_CLOSE"); v != "" {
		cfg.Schedule.CloseCron = v
	}
	if v := os.Getenv("CRON_CLEAR"); v != "" {
		cfg.Schedule.ClearCron = v
	}
	if v := os.Getenv("FINAL_ROUND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Game.FinalRound = n
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/firmsim.db"
	}
	g := &c.Game
	if g.ID == "" {
		g.ID = "default"
	}
	if g.Name == "" {
		g.Name = "FirmSim"
	}
	if g.FinalRound == 0 {
		g.FinalRound = 6
	}
	if g.Rates == (model.Rates{}) {
		g.Rates = model.Rates{ST: 10, LT: 5, Tax: 30}
	}
	for _, p := range model.Products {
		if g.Demand.Get(p) == (model.DemandParams{}) {
			g.Demand.Set(p, defaultDemand.Get(p))
		}
	}
	if g.Setup.BalanceSheet == (model.BalanceSheet{}) {
		g.Setup.BalanceSheet = model.BalanceSheet{
			Cash:             29200,
			FixedAssets:      20000,
			Equity:           30000,
			RetainedEarnings: 19200,
		}
	}
	if g.Setup.Limits == (model.Limits{}) {
		g.Setup.Limits = model.Limits{Machine: 1000, Labour: 1000, Material: 100000}
	}
}

var defaultDemand = model.PerProduct[model.DemandParams]{
	A: model.DemandParams{Intercept: 50, Slope: 0.002, Growth: 1},
	B: model.DemandParams{Intercept: 60, Slope: 0.003, Growth: 1},
	C: model.DemandParams{Intercept: 70, Slope: 0.005, Growth: 1},
}

// Validate checks that the game can be played and that Telegram, when enabled, is complete.
func (c *Config) Validate() error {
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	g := c.Game
	if g.FinalRound < 1 {
		return fmt.Errorf("game.final_round must be at least 1")
	}
	if g.Rates.ST < 0 || g.Rates.LT < 0 || g.Rates.Tax < 0 || g.Rates.Tax > 100 {
		return fmt.Errorf("game.rates out of range: %+v", g.Rates)
	}
	for _, p := range model.Products {
		if !g.Demand.Get(p).Valid() {
			return fmt.Errorf("game.demand.%s needs a positive intercept and slope", p)
		}
	}
	if imb := g.Setup.Imbalance(); imb > 0.005 || imb < -0.005 {
		return fmt.Errorf("game.setup does not balance: assets exceed liabilities and equity by %.2f", imb)
	}
	seen := make(map[string]bool, len(g.Firms))
	for _, f := range g.Firms {
		if f.ID == "" {
			return fmt.Errorf("game.firms: every firm needs an id")
		}
		if seen[f.ID] {
			return fmt.Errorf("game.firms: duplicate id %q", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// NewGame builds the game described by the config.
func (c *Config) NewGame() *model.Game {
	g := c.Game
	demand := model.DemandSet{}
	for _, p := range model.Products {
		d := g.Demand.Get(p)
		demand.Set(p, &d)
	}
	return &model.Game{
		ID:         g.ID,
		Name:       g.Name,
		FinalRound: g.FinalRound,
		Rates:      g.Rates,
		Demand:     demand,
		Setup:      model.Position{Sheet: g.Setup.BalanceSheet, Limits: g.Setup.Limits},
		Firms:      append([]model.Firm(nil), g.Firms...),
	}
}
