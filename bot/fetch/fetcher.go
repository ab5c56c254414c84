// Package fetch retrieves remote audio resources to local files with bounded
// retries. Fetched files are handed to Telegram and then discarded; the media
// cache keeps only the platform file ID.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/m3rciful/kotobot/core/logger"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; kotobot/1.0)"

// Options tune retry behaviour.
type Options struct {
	// MaxAttempts bounds retrieval attempts per call (default 5).
	MaxAttempts int
	// Backoff is the fixed delay between failed attempts (default 10s).
	Backoff time.Duration
}

// Fetcher downloads a URL to a destination path.
type Fetcher struct {
	client      *resty.Client
	maxAttempts int
	backoff     time.Duration
}

// New builds a Fetcher with its own HTTP client.
func New(opts Options) *Fetcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", defaultUserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &Fetcher{
		client:      client,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

// Fetch retrieves url into dest and returns dest on success.
//
// When dest already exists and force is false the call returns immediately
// with no network access. A dest that cannot be created is a hard local
// failure with no retry. Remote failures retry up to MaxAttempts with a fixed
// backoff; a failed run leaves any partial file in place, cleanup is the
// caller's concern.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, force bool) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("fetch: empty destination path")
	}

	if !force {
		if _, err := os.Stat(dest); err == nil {
			logger.Debug(ctx, "fetch", "fetch.cached",
				slog.String("dest", dest),
			)
			return dest, nil
		}
	}

	// Probe writability up front so a bad destination fails without touching
	// the network.
	probe, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("fetch: open destination: %w", err)
	}
	_ = probe.Close()

	start := time.Now()
	var lastErr error
retry:
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		resp, err := f.client.R().
			SetContext(ctx).
			SetOutput(dest).
			Get(url)
		if err == nil && resp.IsSuccess() {
			logger.Debug(ctx, "fetch", "fetch.done",
				slog.String("url", logger.SanitizeLimit(url, 256)),
				slog.String("dest", dest),
				slog.Int("attempt", attempt),
				slog.Duration("duration", logger.Took(start)),
			)
			return dest, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("http status %d", resp.StatusCode())
		}
		logger.Warn(ctx, "fetch", "fetch.attempt_failed",
			slog.String("url", logger.SanitizeLimit(url, 256)),
			slog.Int("attempt", attempt),
			slog.Int("attempts", f.maxAttempts),
			slog.String("err", lastErr.Error()),
		)

		if attempt == f.maxAttempts {
			break
		}
		timer := time.NewTimer(f.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			break retry
		case <-timer.C:
		}
	}

	return "", fmt.Errorf("fetch %s: %w", logger.SanitizeLimit(url, 256), lastErr)
}
