// dumb-bot connects to the arena over websocket, creates or joins wagered
// games and plays random legal moves.
//
// Usage:
//
//	dumb-bot --url ws://localhost:8080/ws --user-id bot-1 --wager 10 --games 5
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wager-arena/internal/config"
	"wager-arena/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, err := config.LoadBot()
	if err != nil {
		cfg = config.BotConfig{WSURL: "ws://localhost:8080/ws", UserID: "bot", UserName: "Bot", Wager: 10}
	}
	var (
		games int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "dumb-bot",
		Short: "Play random tic-tac-toe moves against the arena",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if logCfg, err := config.LoadLog(); err == nil {
				logging.Init(logCfg)
			}
			if cfg.Wager <= 0 {
				return fmt.Errorf("wager must be positive, got %d", cfg.Wager)
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := newBot(cfg.UserID, cfg.Wager, games, seed)
			log.Info().Str("url", cfg.WSURL).Str("user_id", cfg.UserID).Int64("wager", cfg.Wager).Msg("bot starting")
			return run(ctx, cfg, b)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&cfg.WSURL, "url", cfg.WSURL, "Arena websocket URL (env: WS_URL)")
	cmd.Flags().StringVar(&cfg.UserID, "user-id", cfg.UserID, "User id sent as X-User-ID (env: BOT_USER_ID)")
	cmd.Flags().StringVar(&cfg.UserName, "user-name", cfg.UserName, "Display name (env: BOT_USER_NAME)")
	cmd.Flags().Int64Var(&cfg.Wager, "wager", cfg.Wager, "Wager for games the bot creates (env: BOT_WAGER)")
	cmd.Flags().IntVar(&games, "games", 0, "Stop after this many finished games; 0 plays forever")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for move selection")
	return cmd
}

func run(ctx context.Context, cfg config.BotConfig, b *bot) error {
	conn, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := writeFrames(conn, b.start()); err != nil {
		return err
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		out, err := b.handle(data)
		if err != nil {
			log.Debug().Err(err).Msg("skip frame")
			continue
		}
		if err := writeFrames(conn, out); err != nil {
			return err
		}
		if b.fatal != nil {
			return b.fatal
		}
		if b.done() {
			log.Info().Int("played", b.played).Int("won", b.won).Msg("bot finished")
			return nil
		}
	}
}
