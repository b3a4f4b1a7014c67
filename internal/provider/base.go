package provider

import (
	"context"

	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/pkg/models"
)

// BaseSource provides the shared plumbing of concrete sources: metadata,
// an HTTP client and a rate limiter. Embed it in a source implementation.
type BaseSource struct {
	info    Info
	client  *infra.HTTPClient
	limiter *infra.RateLimiter
}

// NewBaseSource creates a base source. A nil client gets infra defaults;
// a nil limiter disables rate limiting.
func NewBaseSource(info Info, client *infra.HTTPClient, limiter *infra.RateLimiter) BaseSource {
	if client == nil {
		client = infra.NewHTTPClient()
	}
	return BaseSource{info: info, client: client, limiter: limiter}
}

func (b *BaseSource) Info() Info { return b.info }

// Client returns the HTTP client used for upstream calls.
func (b *BaseSource) Client() *infra.HTTPClient { return b.client }

// RateLimit waits until a request slot is available.
func (b *BaseSource) RateLimit(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// CheckRef rejects references of a kind this source does not serve.
func (b *BaseSource) CheckRef(ref models.Ref) error {
	if ref.Kind != b.info.Kind || ref.Code == "" {
		return &ErrKindMismatch{Source: b.info.Name, Ref: ref}
	}
	return nil
}
