// Package providers builds the concrete series sources from configuration
// and registers them by series kind.
package providers

import (
	"github.com/seenimoa/crossasset/internal/config"
	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/internal/providers/fred"
	"github.com/seenimoa/crossasset/internal/providers/yfinance"
)

// Set holds the registry plus typed handles for source-specific features.
type Set struct {
	Registry *provider.Registry
	FRED     *fred.Source
	Yahoo    *yfinance.Source
}

// New creates the FRED and Yahoo sources. Each upstream gets its own rate
// limiter; both share one HTTP client configured from cfg.
func New(cfg config.FetchConfig) (*Set, error) {
	client := infra.NewHTTPClient(
		infra.WithTimeout(cfg.Timeout),
		infra.WithRetries(cfg.Retries),
		infra.WithUserAgent(cfg.UserAgent),
	)

	fr := fred.New(client, infra.PerSecond(cfg.RateLimit), fred.WithBaseURL(cfg.FredBaseURL))
	yf := yfinance.New(client, infra.PerSecond(cfg.RateLimit), yfinance.WithBaseURL(cfg.YahooBaseURL))

	reg, err := provider.NewRegistry(fr, yf)
	if err != nil {
		return nil, err
	}
	return &Set{Registry: reg, FRED: fr, Yahoo: yf}, nil
}
