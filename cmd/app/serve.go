package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"telegram-game-launcher/internal/application"
	"telegram-game-launcher/internal/config"
	"telegram-game-launcher/internal/domain/ports/adapter"
	tele "telegram-game-launcher/internal/infra/adapters/telegram"
	httpapi "telegram-game-launcher/internal/infra/http"
	"telegram-game-launcher/internal/infra/logging"
	"telegram-game-launcher/internal/infra/metrics"
	red "telegram-game-launcher/internal/infra/redis"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile, devMode)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.SetBuildInfo(Version, Commit, cfg.Bot.Language)

	// ---- Commands ----
	menu, reg, err := buildMenu(cfg)
	if err != nil {
		return err
	}
	if err := checkCommands(reg); err != nil {
		return err
	}

	// ---- Telegram ----
	var transport adapter.TelegramTransport
	switch cfg.Bot.Mode {
	case config.ModeConsole:
		transport = tele.NewConsoleBotAdapter(os.Stdin, os.Stdout, logger)
	default:
		transport, err = tele.NewRealTelegramBotAdapter(&cfg.Bot, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
	}

	bot, err := application.NewBotContext(transport, reg, logger, cfg.Runtime.Dev)
	if err != nil {
		return err
	}
	if err := bot.Dispatcher.SetErrorReply(menu.ErrorReply()); err != nil {
		return fmt.Errorf("error reply: %w", err)
	}

	// ---- Redis (optional) ----
	var limiter adapter.RateLimiter
	var redisPing httpapi.ReadinessCheck
	if cfg.Redis.URL != "" {
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		limiter = red.NewRateLimiter(client, cfg.Redis.Limit, cfg.Redis.Window)
		redisPing = client.Ping
		logger.Info().Int("limit", cfg.Redis.Limit).Dur("window", cfg.Redis.Window).Msg("Per-user rate limiting enabled")
	}

	loop := application.NewPollLoop(bot, application.PollLoopOptions{
		PollTimeout:    cfg.Poll.Timeout,
		SendTimeout:    cfg.Poll.SendTimeout,
		Workers:        cfg.Bot.Workers,
		Backoff:        application.NewBackoff(cfg.Poll.BackoffInitial, cfg.Poll.BackoffMax, cfg.Poll.BackoffFactor),
		Limiter:        limiter,
		ThrottledReply: menu.Throttled(),
	}, logger)

	pubCtx, cancel := context.WithTimeout(ctx, cfg.Poll.SendTimeout)
	if err := bot.PublishMenu(pubCtx); err != nil {
		logger.Warn().Err(err).Msg("failed to publish command menu")
	}
	cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })

	// ---- Admin HTTP ----
	if cfg.Admin.Port > 0 {
		admin := httpapi.NewServer(cfg.Admin.Port, prometheus.DefaultGatherer, logger)
		admin.AddReadinessCheck("poll_loop", loop.Ready)
		if redisPing != nil {
			admin.AddReadinessCheck("redis", redisPing)
		}
		g.Go(admin.Start)
		g.Go(func() error {
			<-gctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return admin.Shutdown(shCtx)
		})
	}

	logger.Info().
		Str("mode", cfg.Bot.Mode).
		Str("language", cfg.Bot.Language).
		Int("commands", len(reg.Commands())).
		Msg("gamebot started")

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("gamebot stopped")
	return nil
}
