package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// WithTimeout bounds every Optimize call on c by d. A call still running at
// the deadline fails with *model.OptimizationError even if c ignores its
// context. A non-positive d returns c unchanged.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return &timeoutClient{next: c, timeout: d}
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

type optimizeOutcome struct {
	res *model.OptimizationResult
	err error
}

func (c *timeoutClient) Optimize(ctx context.Context, base model.Artifact, style model.StyleSpec) (*model.OptimizationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan optimizeOutcome, 1)
	go func() {
		res, err := c.next.Optimize(ctx, base, style)
		done <- optimizeOutcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, asOptimizationError("optimize", out.err)
		}
		return out.res, nil
	case <-ctx.Done():
		return nil, &model.OptimizationError{
			Reason: fmt.Sprintf("timed out after %s", c.timeout),
			Err:    ctx.Err(),
		}
	}
}
