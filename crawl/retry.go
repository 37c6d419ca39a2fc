package crawl

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fwojciec/corpus"
)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetry fetches url, retrying transient failures after each of
// delays. Permanent failures (4xx other than 429, canceled context) are
// returned immediately. A nil logger disables retry logging.
func FetchWithRetry(ctx context.Context, fetcher corpus.Fetcher, url string, delays []time.Duration, logger *slog.Logger) (*corpus.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		resp, err := fetcher.Fetch(ctx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == len(delays) || !transient(ctx, err) {
			break
		}

		if logger != nil {
			logger.Debug("retry", "url", url, "attempt", attempt+2, "err", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return nil, lastErr
}

func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if corpus.ErrorCode(err) == corpus.EINVALID {
		return false
	}
	var se *corpus.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}
