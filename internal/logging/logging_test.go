package logging

import (
	"os"
	"path/filepath"
	"testing"

	"wager-arena/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitSetsLevelAndFileSink(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prevLogger := log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
		setWriter(os.Stdout)
	})

	path := filepath.Join(t.TempDir(), "arena.log")
	Init(config.LogConfig{Level: "warn", File: path, MaxMB: 1})

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("global level = %v, want warn", zerolog.GlobalLevel())
	}
	log.Warn().Str("session_id", "ttt-1-a").Msg("probe")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("expected log line in file sink")
	}
}

func TestInitIgnoresUnknownLevel(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prevLogger := log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	Init(config.LogConfig{Level: "chatty"})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("global level = %v, want info", zerolog.GlobalLevel())
	}
}
