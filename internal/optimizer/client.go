// Package optimizer sends a rendered QR code and styling hints to a
// generative design service and interprets the reply.
//
// Two reply shapes are supported: a combined call returning both the report
// and the restyled image (FlowClient), and a split call where a Reporter and
// a Painter run concurrently and are joined (SplitClient). Clients never
// retry; every failure is returned as *model.OptimizationError.
package optimizer

import (
	"context"
	"errors"
	"strings"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// Client optimizes a base QR code artifact.
type Client interface {
	Optimize(ctx context.Context, base model.Artifact, style model.StyleSpec) (*model.OptimizationResult, error)
}

// Reporter produces a diagnostic report for a request.
type Reporter interface {
	Report(ctx context.Context, req Request) (string, error)
}

// Painter produces a restyled image for a request.
type Painter interface {
	Paint(ctx context.Context, req Request) (model.Artifact, error)
}

// Request is the wire form sent to the optimization service. Optional
// fields are omitted when absent.
type Request struct {
	QRCodeDataURI    string `json:"qrCodeDataUri"`
	LogoDataURI      string `json:"logoDataUri,omitempty"`
	ShapeColor       string `json:"shapeColor,omitempty"`
	EyeShape         string `json:"eyeShape,omitempty"`
	DotShape         string `json:"dotShape,omitempty"`
	UserInstructions string `json:"userInstructions,omitempty"`
}

// Response is the wire form returned by the optimization service.
type Response struct {
	OptimizationReport     string `json:"optimizationReport"`
	OptimizedQRCodeDataURI string `json:"optimizedQrCodeDataUri,omitempty"`
}

// NewRequest packages base and style into a Request. SVG logos are
// rasterized to PNG first.
func NewRequest(base model.Artifact, style model.StyleSpec) (Request, error) {
	if base.IsZero() {
		return Request{}, &model.OptimizationError{Reason: "base artifact is empty"}
	}
	req := Request{
		QRCodeDataURI:    base.DataURI(),
		ShapeColor:       style.ShapeColor,
		EyeShape:         string(style.EyeShape),
		DotShape:         string(style.DotShape),
		UserInstructions: strings.TrimSpace(style.Instructions),
	}
	if style.Logo != nil && !style.Logo.IsZero() {
		logo, err := NormalizeLogo(*style.Logo)
		if err != nil {
			return Request{}, &model.OptimizationError{Reason: "prepare logo", Err: err}
		}
		req.LogoDataURI = logo.DataURI()
	}
	return req, nil
}

// Base decodes the QR code carried by the request.
func (r Request) Base() (model.Artifact, error) {
	return model.ParseDataURI(r.QRCodeDataURI)
}

// Logo decodes the logo carried by the request, if any.
func (r Request) Logo() (*model.Artifact, error) {
	if r.LogoDataURI == "" {
		return nil, nil
	}
	a, err := model.ParseDataURI(r.LogoDataURI)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Result validates the response fields and converts them. A missing report
// or image is a failure unless fallback is set, in which case a missing
// image yields fallback as the artifact.
func (r Response) Result(fallback *model.Artifact) (*model.OptimizationResult, error) {
	if strings.TrimSpace(r.OptimizationReport) == "" {
		return nil, &model.OptimizationError{Reason: "response missing optimizationReport"}
	}
	if r.OptimizedQRCodeDataURI == "" {
		if fallback == nil {
			return nil, &model.OptimizationError{Reason: "response missing optimizedQrCodeDataUri"}
		}
		return &model.OptimizationResult{Artifact: *fallback, Report: r.OptimizationReport}, nil
	}
	a, err := model.ParseDataURI(r.OptimizedQRCodeDataURI)
	if err != nil {
		return nil, &model.OptimizationError{Reason: "invalid optimizedQrCodeDataUri", Err: err}
	}
	return &model.OptimizationResult{Artifact: a, Report: r.OptimizationReport}, nil
}

// asOptimizationError converts err into *model.OptimizationError, keeping
// an existing one as is.
func asOptimizationError(reason string, err error) error {
	if err == nil {
		return nil
	}
	var oe *model.OptimizationError
	if errors.As(err, &oe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.OptimizationError{Reason: reason + ": timed out", Err: err}
	}
	return &model.OptimizationError{Reason: reason, Err: err}
}
