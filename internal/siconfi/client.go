package siconfi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/farxc/envelopa-rreo/internal/env"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
)

const (
	DefaultPageLimit = 1000
	DefaultMaxPages  = 50
)

// Config describes the upstream RREO endpoint.
type Config struct {
	BaseURL            string
	Endpoint           string
	PageLimit          int
	MaxPages           int
	DefaultPeriodicity string
	Headers            http.Header
	ExtraQuery         map[string]string
}

// ConfigFromEnv maps the application settings onto a client Config.
func ConfigFromEnv(s env.SiconfiConfig) Config {
	headers := http.Header{}
	if s.Authorization != "" {
		headers.Set("Authorization", s.Authorization)
	}
	return Config{
		BaseURL:            s.BaseURL,
		Endpoint:           s.RREOEndpoint,
		PageLimit:          s.PageLimit,
		MaxPages:           s.MaxPages,
		DefaultPeriodicity: s.DefaultPeriodicity,
		Headers:            headers,
	}
}

// Client fetches RREO datasets, trying each query attempt in turn.
type Client struct {
	cfg    Config
	pager  *Pager
	logger *logger.Logger
	now    func() time.Time
}

func NewClient(getter Getter, cfg Config, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		pager:  NewPager(getter, cfg, log),
		logger: log,
		now:    time.Now,
	}
}

// FetchRREO returns the items of the first attempt that yields any. Attempt
// failures are logged and skipped. When every attempt failed the last
// failure is returned; when at least one completed but all were empty the
// result is ErrNoData.
func (c *Client) FetchRREO(ctx context.Context, f fiscal.Filter) (*fiscal.Dataset, error) {
	const component = "SiconfiClient"

	if err := f.Validate(); err != nil {
		return nil, err
	}

	attempts := BuildAttempts(f, c.cfg.DefaultPeriodicity, c.cfg.ExtraQuery)
	var lastErr error
	completed := 0

	for i, attempt := range attempts {
		c.logger.Info(component, "Running query attempt: scope=%s attempt=%d/%d", f.Key(), i+1, len(attempts))

		collected, err := c.pager.Collect(ctx, attempt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn(component, "Query attempt failed: scope=%s attempt=%d err=%v", f.Key(), i+1, err)
			observeAttempt("failed")
			lastErr = err
			continue
		}
		completed++

		if len(collected.Items) == 0 {
			c.logger.Info(component, "Query attempt returned no items: scope=%s attempt=%d", f.Key(), i+1)
			observeAttempt("empty")
			continue
		}

		observeAttempt("hit")
		if i > 0 {
			c.logger.Info(component, "Data found with fallback attempt: scope=%s attempt=%d items=%d", f.Key(), i+1, len(collected.Items))
		}
		return &fiscal.Dataset{
			Filter:    f,
			Items:     collected.Items,
			Meta:      collected.Meta,
			FetchedAt: c.now(),
			Truncated: collected.Truncated,
		}, nil
	}

	if completed == 0 && lastErr != nil {
		return nil, fmt.Errorf("all %d query attempts failed: %w", len(attempts), lastErr)
	}
	return nil, ErrNoData
}
