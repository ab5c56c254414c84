// Command kotobot runs the Japanese-learning Telegram bot: dictionary
// search, usage examples, and quiz games over two local SQLite stores.
package main

import (
	"context"
	"log"

	"github.com/m3rciful/kotobot/bot/dict"
	"github.com/m3rciful/kotobot/bot/fetch"
	"github.com/m3rciful/kotobot/bot/handlers"
	"github.com/m3rciful/kotobot/bot/session"
	"github.com/m3rciful/kotobot/bot/storage"
	"github.com/m3rciful/kotobot/bot/work"
	"github.com/m3rciful/kotobot/core/bootstrap"
	"github.com/m3rciful/kotobot/core/cmd"
	coreconfig "github.com/m3rciful/kotobot/core/config"
	coredatabase "github.com/m3rciful/kotobot/core/database"
	tg "github.com/m3rciful/kotobot/core/telegram"
)

type appConfig struct {
	core *coreconfig.Config
}

func (a *appConfig) CoreConfig() *coreconfig.Config { return a.core }

type app struct {
	cfg    *coreconfig.Config
	stores *bootstrap.Result
	pool   *work.Pool
	msgr   *handlers.BotMessenger
	h      *handlers.Handlers
}

func storeConfig(sc coreconfig.StoreConfig, readOnly bool) coredatabase.Config {
	return coredatabase.Config{
		Path:           sc.Path,
		MaxConnections: sc.MaxConnections,
		ReadOnly:       readOnly,
	}
}

func newApp(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()

	stores, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg,
		Stats:      storeConfig(cfg.Storage.Stats, false),
		MediaCache: storeConfig(cfg.Storage.MediaCache, false),
		Dictionary: storeConfig(cfg.Storage.Dictionary, true),
	})
	if err != nil {
		return nil, err
	}

	cache, err := storage.NewMediaCache(stores.MediaCache)
	if err != nil {
		stores.Close()
		return nil, err
	}

	pool := work.NewPool(work.Options{
		QueueSize: cfg.Session.QueueSize,
		Workers:   cfg.Session.Workers,
	})
	msgr := &handlers.BotMessenger{}

	h := handlers.New(
		handlers.Config{
			WaitTimeout: cfg.ReplyTimeout(),
			PageSize:    cfg.Session.PageSize,
			TempDir:     cfg.Fetch.TempDir,
		},
		msgr,
		session.NewManager(),
		session.NewGate(),
		session.NewAnswers(),
		storage.NewUsers(stores.Stats),
		cache,
		dict.New(stores.Dictionary),
		fetch.New(fetch.Options{
			MaxAttempts: cfg.Fetch.MaxAttempts,
			Backoff:     cfg.FetchBackoff(),
		}),
		pool,
	)

	return &app{cfg: cfg, stores: stores, pool: pool, msgr: msgr, h: h}, nil
}

func (a *app) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	routes := a.h.Routes(reg)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, a.h.AccessOptions(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.msgr.Bot = rt.Bot
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			a.pool.Close()
			a.stores.Close()
			return nil
		},
	}, nil
}

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return &appConfig{core: cfg}, nil
		},
		Bootstrap: newApp,
	})
	if err != nil {
		log.Fatalf("kotobot: %v", err)
	}
}
