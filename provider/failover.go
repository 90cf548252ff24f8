package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amicalabs/amica/core"
)

// Failover tries providers in construction order and returns the first
// success. Per-request failover replaces sticky primary/secondary
// switching: a transient primary outage costs one extra call instead of
// demoting the primary for the rest of the process lifetime.
type Failover struct {
	providers []Provider
	logger    *zap.Logger
}

// FailoverOption configures a Failover.
type FailoverOption func(*Failover)

// WithFailoverLogger attaches a logger. Defaults to a no-op logger.
func WithFailoverLogger(logger *zap.Logger) FailoverOption {
	return func(f *Failover) { f.logger = logger }
}

// NewFailover chains providers in priority order.
func NewFailover(providers []Provider, opts ...FailoverOption) *Failover {
	f := &Failover{
		providers: providers,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Generate tries each provider until one succeeds. A context cancellation
// stops the chain immediately; otherwise exhaustion wraps
// core.ErrProviderUnavailable with the last failure.
func (f *Failover) Generate(ctx context.Context, messages []core.Message, temperature float64, maxTokens int) (*Reply, error) {
	if len(f.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", core.ErrProviderUnavailable)
	}

	var lastErr error
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reply, err := p.Generate(ctx, messages, temperature, maxTokens)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		f.logger.Warn("provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}
	return nil, fmt.Errorf("%w: all %d providers failed, last: %v",
		core.ErrProviderUnavailable, len(f.providers), lastErr)
}

// Name returns "failover".
func (f *Failover) Name() string {
	return "failover"
}
