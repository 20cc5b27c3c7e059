package optimizer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// SplitClient issues the report and image sub-requests concurrently and
// joins them. If either fails the whole call fails.
type SplitClient struct {
	Reporter Reporter
	Painter  Painter
}

// NewSplitClient returns a SplitClient.
func NewSplitClient(r Reporter, p Painter) *SplitClient {
	return &SplitClient{Reporter: r, Painter: p}
}

// Optimize runs both sub-requests and returns their combined result.
func (c *SplitClient) Optimize(ctx context.Context, base model.Artifact, style model.StyleSpec) (*model.OptimizationResult, error) {
	req, err := NewRequest(base, style)
	if err != nil {
		return nil, err
	}

	var (
		report   string
		artifact model.Artifact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.Reporter.Report(gctx, req)
		if err != nil {
			return asOptimizationError("report request failed", err)
		}
		if r == "" {
			return &model.OptimizationError{Reason: "report request returned no report"}
		}
		report = r
		return nil
	})
	g.Go(func() error {
		a, err := c.Painter.Paint(gctx, req)
		if err != nil {
			return asOptimizationError("image request failed", err)
		}
		if a.IsZero() {
			return &model.OptimizationError{Reason: "image request returned no image"}
		}
		artifact = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &model.OptimizationResult{Artifact: artifact, Report: report}, nil
}
