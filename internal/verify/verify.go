// Package verify decodes rendered QR codes back to text so callers can check
// that a restyled image still scans to the original payload.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// Scanner decodes the text stored in a QR code image.
type Scanner interface {
	Scan(ctx context.Context, a model.Artifact) (string, error)
}

// ZXingScanner implements Scanner with gozxing.
type ZXingScanner struct {
	tryHarder bool
}

// NewScanner returns a scanner. tryHarder trades speed for accuracy on
// heavily styled images.
func NewScanner(tryHarder bool) *ZXingScanner {
	return &ZXingScanner{tryHarder: tryHarder}
}

// Scan decodes a raster artifact. Vector formats are not supported.
func (s *ZXingScanner) Scan(ctx context.Context, a model.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.Format == model.FormatSVG {
		return "", fmt.Errorf("cannot scan %s artifacts", a.Format)
	}
	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{}
	if s.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("no QR code found: %w", err)
	}
	return result.GetText(), nil
}

// Matches scans a and reports whether it decodes to want.
func Matches(ctx context.Context, s Scanner, a model.Artifact, want string) (bool, error) {
	got, err := s.Scan(ctx, a)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
