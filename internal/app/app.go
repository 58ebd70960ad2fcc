// Package app wires the matchmaking bot: storage, sessions, dispatch and the
// Telegram transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/soulbot/core/bootstrap"
	"github.com/m3rciful/soulbot/core/logger"
	coretelegram "github.com/m3rciful/soulbot/core/telegram"
	"github.com/m3rciful/soulbot/core/telegram/router"
	"github.com/m3rciful/soulbot/core/telegram/sender"
	"github.com/m3rciful/soulbot/internal/chat"
	"github.com/m3rciful/soulbot/internal/dispatch"
	"github.com/m3rciful/soulbot/internal/modes"
	"github.com/m3rciful/soulbot/internal/session"
	"github.com/m3rciful/soulbot/internal/store"
	"github.com/m3rciful/soulbot/migrations"
)

const textEvicted = "You were inactive for a while, so the conversation was closed. " +
	"Send /profile, /find or /check to continue, or /start if you have no profile yet."

// App holds the running components of the bot.
type App struct {
	cfg *Config
	db  *sqlx.DB

	bot   *tele.Bot
	queue *sender.Queue

	store      *store.Store
	sessions   *session.Registry
	dispatcher *dispatch.Dispatcher
	commands   *coretelegram.Registry

	runBot func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Migrate applies the schema and seeds the categories, then closes the
// database. It backs the migrate command.
func Migrate(ctx context.Context, cfg *Config) error {
	res, err := bootstrap.Run(ctx, bootstrapOptions(cfg))
	if err != nil {
		return err
	}
	return res.DB.Close()
}

func bootstrapOptions(cfg *Config) bootstrap.Options {
	return bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
		Modules: bootstrap.Modules{
			Seeders: []bootstrap.Seeder{CategorySeeder(cfg.Categories)},
		},
	}
}

// Bootstrap prepares the infrastructure (logger, database, migrations,
// category seed) and the Telegram bot, then wires the app.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	res, err := bootstrap.Run(ctx, bootstrapOptions(cfg))
	if err != nil {
		return nil, err
	}

	bot, err := coretelegram.NewBot(&cfg.Config)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	queue := sender.NewQueue(sender.Options{
		Workers:      cfg.Sender.Workers,
		QueueSize:    cfg.Sender.QueueSize,
		MaxRetries:   cfg.Sender.MaxRetries,
		RetryBackoff: time.Duration(cfg.Sender.RetryBackoffMS) * time.Millisecond,
	})

	a, err := New(cfg, res.DB, chat.NewTelebotMessenger(bot, queue))
	if err != nil {
		queue.Close()
		_ = res.DB.Close()
		return nil, err
	}
	a.bot = bot
	a.queue = queue
	return a, nil
}

// New wires the domain components on top of an open database and a messenger.
func New(cfg *Config, db *sqlx.DB, msgr chat.Messenger) (*App, error) {
	st := store.New(db)
	sessions := session.NewRegistry(msgr, session.Options{
		IdleTimeout:   cfg.Sessions.IdleTimeout,
		SweepInterval: cfg.Sessions.SweepInterval,
		EvictNotice:   textEvicted,
	})

	cmds := dispatch.DefaultCommands()
	reg := coretelegram.NewRegistry()
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.Name, coretelegram.Command{Description: c.Description}); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	reg.RegisterActions(modes.Actions()...)

	return &App{
		cfg:      cfg,
		db:       db,
		store:    st,
		sessions: sessions,
		commands: reg,
		dispatcher: dispatch.New(dispatch.Options{
			Registry:       sessions,
			Messenger:      msgr,
			Store:          st,
			CategoryFilter: cfg.Browse.FilterByCategory(),
			Commands:       cmds,
		}),
		runBot: coretelegram.RunTelegram,
	}, nil
}

// TelegramRunOptions describes how the transport is run: the router feeds the
// dispatcher, which opens on start and drains on stop.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.commands,
		Bot:         a.bot,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      router.Routes(router.Options{Registry: a.commands, Sink: a.dispatcher}),
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			a.dispatcher.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			a.shutdown(ctx)
			return nil
		},
	}, nil
}

// Run serves the bot and the idle sweeper until ctx is done or either fails.
func (a *App) Run(ctx context.Context, opts coretelegram.RunOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.sessions.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return a.runBot(gctx, opts)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) shutdown(ctx context.Context) {
	a.dispatcher.Stop()
	n := a.sessions.Drain(ctx)
	logger.Info(ctx, "session", "drain",
		slog.String("status", "ok"),
		slog.Int("souls", n),
	)
}

// Close releases the outbound queue and the database.
func (a *App) Close() error {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// CategorySeeder makes sure the configured interests exist.
func CategorySeeder(titles []string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		n, err := store.New(db).EnsureCategories(ctx, titles)
		if err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		logger.Info(ctx, "db.seed", "categories",
			slog.String("status", "ok"),
			slog.Int("count", n),
		)
		return nil
	})
}
