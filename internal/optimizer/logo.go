package optimizer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// logoRasterSize is the longest side of a rasterized SVG logo in pixels.
const logoRasterSize = 256

// NormalizeLogo returns raster logos unchanged and rasterizes SVG logos to
// PNG, keeping their aspect ratio.
func NormalizeLogo(logo model.Artifact) (model.Artifact, error) {
	if logo.Format != model.FormatSVG {
		return logo, nil
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(logo.Data))
	if err != nil {
		return model.Artifact{}, fmt.Errorf("parse SVG logo: %w", err)
	}

	w, h := logoRasterSize, logoRasterSize
	if vw, vh := icon.ViewBox.W, icon.ViewBox.H; vw > 0 && vh > 0 {
		if vw >= vh {
			h = int(float64(logoRasterSize) * vh / vw)
		} else {
			w = int(float64(logoRasterSize) * vw / vh)
		}
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	icon.Draw(rasterx.NewDasher(w, h, rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return model.Artifact{}, fmt.Errorf("encode logo PNG: %w", err)
	}
	return model.NewPNG(buf.Bytes()), nil
}
