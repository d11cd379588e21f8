package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Diagnosis endpoint the bot sends each turn to (usually the relay).
	DiagnosisURL string `env:"DIAGNOSIS_API_URL" envDefault:"http://localhost:3000/diagnose"`
}

// RelayConfig configures the /diagnose relay process.
type RelayConfig struct {
	Port        int    `env:"PORT" envDefault:"3000"`
	UpstreamURL string `env:"UPSTREAM_API_URL" envDefault:"https://llava-rag-api.vercel.app/rag-query"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func LoadRelay() (*RelayConfig, error) {
	cfg := &RelayConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse relay config: %w", err)
	}
	return cfg, nil
}
