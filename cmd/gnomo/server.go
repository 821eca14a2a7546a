package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/gnomo/internal/agent"
	"github.com/kalambet/gnomo/internal/agent/tools"
	"github.com/kalambet/gnomo/internal/birthday"
	"github.com/kalambet/gnomo/internal/bucket"
	"github.com/kalambet/gnomo/internal/config"
	"github.com/kalambet/gnomo/internal/discord"
	"github.com/kalambet/gnomo/internal/health"
	"github.com/kalambet/gnomo/internal/history"
	"github.com/kalambet/gnomo/internal/kv"
	"github.com/kalambet/gnomo/internal/llm"
	"github.com/kalambet/gnomo/internal/reminder"
	"github.com/kalambet/gnomo/internal/schedule"
	"github.com/kalambet/gnomo/internal/search"
	"github.com/kalambet/gnomo/internal/timeparse"
)

const shutdownTimeout = 10 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Connect to Discord and run the bot (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runBot(ctx)
	},
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// openStore is swapped out in tests.
var openStore = func(cfg config.Config) (kv.Store, error) {
	return kv.Open(kv.Options{
		Backend:  cfg.Store.Backend,
		RedisURL: cfg.Store.RedisURL,
		DataDir:  cfg.Storage.DataDir,
	})
}

// services are the collaborators shared by the bot and the MCP server.
type services struct {
	store     kv.Store
	reminders *reminder.Store
	assets    *bucket.Client
	llm       *llm.Client
	catalog   *tools.Catalog
	loc       *time.Location
}

func (s *services) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func buildServices(cfg config.Config, logger *slog.Logger) (*services, error) {
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if store == nil {
		logger.Warn("no key-value store configured; conversation history and reminders are disabled")
	}

	s := &services{
		store:     store,
		reminders: reminder.NewStore(store, logger),
		assets:    bucket.New(cfg.Bucket.URL, logger),
		llm:       llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model),
		loc:       loc,
	}
	s.catalog = tools.Standard(tools.Deps{
		Assets:    s.assets,
		Search:    search.NewClient(cfg.Search.TavilyAPIKey),
		Parser:    timeparse.New(s.llm, loc, logger),
		Reminders: s.reminders,
		Logger:    logger,
	})
	return s, nil
}

func runBot(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	logger.Info("starting gnomo", "version", version, "model", cfg.LLM.Model, "timezone", cfg.Schedule.Timezone)

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	conversations := history.New(svc.store, cfg.History.MaxMessages, cfg.History.TTL(), logger)
	router := agent.NewRouter(svc.llm, svc.catalog, cfg.Agent.MaxSteps, logger)

	bot, err := discord.New(discord.Options{
		Token:         cfg.Discord.BotToken,
		GuildID:       cfg.Discord.GuildID,
		Responder:     router,
		Conversations: conversations,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	dispatcher := reminder.NewDispatcher(svc.reminders, bot.Channels(), bot.Channels(), logger)
	greeter := birthday.NewGreeter(svc.assets, bot.Channels(), bot.Channels(), cfg.Discord.GnomosChannelID, svc.loc, logger)

	sched := schedule.New(svc.loc, logger)
	if cfg.Schedule.ReminderCron != "" {
		if err := sched.Add("reminders", cfg.Schedule.ReminderCron, dispatcher.Tick); err != nil {
			return err
		}
	}
	if err := sched.Add("birthdays", cfg.Schedule.BirthdayCron, greeter.Tick); err != nil {
		return err
	}

	checks := health.NewHandler(
		health.Ping("kv", conversations, kv.ErrNotConfigured),
		health.Ready("discord", bot.Ready),
		health.Ping("external-api", svc.assets, nil),
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           checks,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	if cfg.Schedule.ReminderCron == "" {
		g.Go(func() error {
			dispatcher.Run(gctx, time.Minute)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("health server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
