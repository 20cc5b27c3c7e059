package optimizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// StubBackend answers locally without calling any service (for development
// and tests). It reports on the requested style and returns the base image
// unchanged.
type StubBackend struct{}

func (StubBackend) Report(_ context.Context, req Request) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Optimization report\n\n")
	sb.WriteString("- Error correction: High (about 30% recoverable)\n")
	if req.ShapeColor != "" {
		fmt.Fprintf(&sb, "- Module color: %s; keep strong contrast with the background\n", req.ShapeColor)
	}
	if req.EyeShape != "" {
		fmt.Fprintf(&sb, "- Eye shape: %s\n", req.EyeShape)
	}
	if req.DotShape != "" {
		fmt.Fprintf(&sb, "- Dot shape: %s\n", req.DotShape)
	}
	if req.LogoDataURI != "" {
		sb.WriteString("- Logo: keep it under 20% of the symbol area\n")
	}
	if req.UserInstructions != "" {
		fmt.Fprintf(&sb, "- Instructions: %s\n", req.UserInstructions)
	}
	return sb.String(), nil
}

func (StubBackend) Paint(_ context.Context, req Request) (model.Artifact, error) {
	return req.Base()
}
