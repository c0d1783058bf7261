package llm

import (
	"context"

	"github.com/nfrund/tafep-voice/internal/retry"
)

// Retrying retries transient provider failures with backoff.
type Retrying struct {
	Provider
	retryer *retry.ExponentialBackoffRetryer
}

// WithRetry decorates p with the given retryer.
func WithRetry(p Provider, r *retry.ExponentialBackoffRetryer) *Retrying {
	return &Retrying{Provider: p, retryer: r}
}

func (r *Retrying) Generate(ctx context.Context, system, prompt string) (string, error) {
	var out string
	err := r.retryer.Retry(ctx, func() error {
		var err error
		out, err = r.Provider.Generate(ctx, system, prompt)
		return err
	})
	return out, err
}
