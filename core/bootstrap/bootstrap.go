package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/kotobot/core/config"
	coredatabase "github.com/m3rciful/kotobot/core/database"
	"github.com/m3rciful/kotobot/core/logger"
)

// Options control the bootstrap pipeline: logger first, then the three
// SQLite stores the bot runs on.
type Options struct {
	Config *coreconfig.Config

	Stats      coredatabase.Config
	MediaCache coredatabase.Config
	Dictionary coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Stats      *sqlx.DB
	MediaCache *sqlx.DB
	Dictionary *sqlx.DB
}

// Close releases every opened store.
func (r *Result) Close() {
	if r == nil {
		return
	}
	for _, db := range []*sqlx.DB{r.Stats, r.MediaCache, r.Dictionary} {
		if db != nil {
			_ = db.Close()
		}
	}
}

// Run initializes the logger, opens the stores, and applies stats migrations.
// The dictionary store is optional: a missing file disables lookups but the
// bot still starts.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}

	stats, err := connect(opts.Stats)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: stats store initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Stats); err != nil {
		_ = stats.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	media, err := connect(opts.MediaCache)
	if err != nil {
		_ = stats.Close()
		return nil, fmt.Errorf("bootstrap: media cache initialization failed: %w", err)
	}

	res := &Result{Stats: stats, MediaCache: media}

	if opts.Dictionary.Path != "" {
		if _, err := os.Stat(opts.Dictionary.Path); err != nil {
			logger.DB.Warn("dictionary store missing, lookups disabled",
				slog.String("path", opts.Dictionary.Path),
			)
		} else {
			dict, err := connect(opts.Dictionary)
			if err != nil {
				res.Close()
				return nil, fmt.Errorf("bootstrap: dictionary initialization failed: %w", err)
			}
			res.Dictionary = dict
		}
	}

	return res, nil
}
