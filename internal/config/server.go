package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisURL    string `env:"REDIS_URL"`

	AdminAPIKey      string   `env:"ADMIN_API_KEY"`
	WSAllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	InitialBalance int64         `env:"INITIAL_BALANCE" envDefault:"1000"`
	LedgerTimeout  time.Duration `env:"LEDGER_TIMEOUT" envDefault:"5s"`

	WaitingTTL     time.Duration `env:"WAITING_TTL" envDefault:"30m"`
	FinishedTTL    time.Duration `env:"FINISHED_TTL" envDefault:"10m"`
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"10m"`

	SettlementWorkers   int           `env:"SETTLEMENT_WORKERS" envDefault:"2"`
	SettlementRetryMax  int           `env:"SETTLEMENT_RETRY_MAX" envDefault:"5"`
	SettlementRetryBase time.Duration `env:"SETTLEMENT_RETRY_BASE" envDefault:"200ms"`

	MirrorSessionTTL time.Duration `env:"MIRROR_SESSION_TTL" envDefault:"1h"`
	MirrorResultsMax int64         `env:"MIRROR_RESULTS_MAX" envDefault:"100"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
