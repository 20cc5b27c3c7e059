package optimizer

import (
	"context"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
	"github.com/cristianadrielbraun/qrstudio/internal/verify"
)

// StyleRenderer renders a payload with a style applied.
type StyleRenderer interface {
	RenderStyled(ctx context.Context, payload string, style model.StyleSpec) (model.Artifact, error)
}

// LocalPainter restyles a code without a remote service: it decodes the
// base image back to its payload and renders it again with the requested
// color, dot shape and logo.
type LocalPainter struct {
	Scanner  verify.Scanner
	Renderer StyleRenderer
}

// NewLocalPainter returns a LocalPainter.
func NewLocalPainter(s verify.Scanner, r StyleRenderer) *LocalPainter {
	return &LocalPainter{Scanner: s, Renderer: r}
}

func (p *LocalPainter) Paint(ctx context.Context, req Request) (model.Artifact, error) {
	base, err := req.Base()
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "invalid qrCodeDataUri", Err: err}
	}
	text, err := p.Scanner.Scan(ctx, base)
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "read base code", Err: err}
	}
	logo, err := req.Logo()
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "invalid logoDataUri", Err: err}
	}
	style := model.StyleSpec{
		ShapeColor:   req.ShapeColor,
		EyeShape:     model.EyeShape(req.EyeShape),
		DotShape:     model.DotShape(req.DotShape),
		Logo:         logo,
		Instructions: req.UserInstructions,
	}
	a, err := p.Renderer.RenderStyled(ctx, text, style)
	if err != nil {
		return model.Artifact{}, &model.OptimizationError{Reason: "render styled code", Err: err}
	}
	return a, nil
}
