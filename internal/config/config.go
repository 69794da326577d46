package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/Victor-armando18/order-pricing/internal/env"
	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

type Config struct {
	Addr            string
	Env             string
	RulesDir        string
	RulesVersion    string
	ChoiceMode      pricing.ChoiceQuantityMode
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// Load lê o .env (se existir) e depois o ambiente; o ambiente tem precedência.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:            env.GetString("ADDR", ":8080"),
		Env:             env.GetString("ENV", "development"),
		RulesDir:        env.GetString("RULES_DIR", "rules"),
		RulesVersion:    env.GetString("RULES_VERSION", "v1"),
		CORSOrigins:     env.GetList("CORS_ORIGINS", []string{"*"}),
		ShutdownTimeout: time.Duration(env.GetInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	mode, ok := pricing.ParseChoiceQuantityMode(env.GetString("CHOICE_QUANTITY_MODE", string(pricing.ChoiceQuantityGate)))
	if !ok {
		return cfg, fmt.Errorf("invalid CHOICE_QUANTITY_MODE: expected %q or %q", pricing.ChoiceQuantityGate, pricing.ChoiceQuantityScale)
	}
	cfg.ChoiceMode = mode

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
