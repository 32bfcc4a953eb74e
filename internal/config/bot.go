package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	UserID   string `env:"BOT_USER_ID" envDefault:"bot"`
	UserName string `env:"BOT_USER_NAME" envDefault:"Bot"`
	Wager    int64  `env:"BOT_WAGER" envDefault:"10"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
