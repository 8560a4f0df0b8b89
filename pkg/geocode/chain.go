package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain queries providers in order and returns the first non-empty answer.
// A provider error moves on to the next provider; the chain fails only when
// every provider errored.
type Chain struct {
	providers []Provider
}

// NewChain builds a chain; nil providers are skipped.
func NewChain(providers ...Provider) *Chain {
	c := &Chain{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Name implements Provider.
func (c *Chain) Name() string { return "chain" }

// Search implements Provider.
func (c *Chain) Search(ctx context.Context, query string) ([]Candidate, error) {
	var lastErr error
	failed := 0
	for _, p := range c.providers {
		cands, err := p.Search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: search cancelled")
			}
			zap.L().Warn("geocode: provider failed",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			failed++
			continue
		}
		if len(cands) > 0 {
			return cands, nil
		}
	}
	if failed > 0 && failed == len(c.providers) {
		return nil, eris.Wrap(lastErr, "geocode: all providers failed")
	}
	return nil, nil
}
