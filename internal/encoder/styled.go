package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/yeqown/go-qrcode/writer/standard"
	"github.com/yeqown/go-qrcode/writer/standard/shapes"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// logoFraction bounds the logo side to 1/6 of the symbol; the standard
// writer rejects logos above 1/5.
const logoFraction = 6

// look holds the visual options applied by render.
type look struct {
	fg    color.RGBA
	shape standard.ImageOption
	logo  image.Image
}

func (l look) styled() bool {
	return l.shape != nil || l.logo != nil || l.fg != (color.RGBA{0, 0, 0, 255})
}

// moduleShape returns the writer option for the dot and eye shapes of style,
// or nil when both are plain squares. Finder patterns never take the dot
// shape: circular finders cannot be located on small symbols.
func moduleShape(style model.StyleSpec) standard.ImageOption {
	finder := shapes.SquareFinder()
	if style.EyeShape == model.EyeRounded {
		finder = shapes.RoundedFinder()
	}
	var block func(ctx *standard.DrawContext)
	switch style.DotShape {
	case model.DotDots:
		block = shapes.CircleBlocks(1)
	case model.DotRounded:
		block = shapes.LiquidBlock()
	default:
		if style.EyeShape != model.EyeRounded {
			return nil
		}
		block = shapes.SquareBlocks(1)
	}
	return standard.WithCustomShape(shapes.Assemble(finder, block))
}

// RenderStyled renders payload with the module color, dot shape, eye shape
// and logo of style applied by the encoder library itself. Size, margin and
// error correction follow Params.
func (e *QREncoder) RenderStyled(ctx context.Context, payload string, style model.StyleSpec) (model.Artifact, error) {
	if err := style.Validate(); err != nil {
		return model.Artifact{}, err
	}
	lk := look{fg: color.RGBA{0, 0, 0, 255}}
	if c, ok := model.ParseHexColor(style.ShapeColor); ok {
		lk.fg = c
	}
	lk.shape = moduleShape(style)
	if style.Logo != nil {
		if style.Logo.Format == model.FormatSVG {
			return model.Artifact{}, &model.EncodingError{Reason: "SVG logos must be rasterized first"}
		}
		img, _, err := image.Decode(bytes.NewReader(style.Logo.Data))
		if err != nil {
			return model.Artifact{}, &model.EncodingError{Reason: "decode logo", Err: err}
		}
		lk.logo = img
	}
	return e.encode(ctx, payload, lk)
}

// writeLogo stores logo as a temp PNG no larger than maxSide on either side.
func (e *QREncoder) writeLogo(logo image.Image, maxSide int) (string, error) {
	if maxSide < 1 {
		return "", fmt.Errorf("symbol too small for a logo")
	}
	f, err := os.Create(filepath.Join(e.tempDir, "logo_"+uuid.NewString()+".png"))
	if err != nil {
		return "", fmt.Errorf("create logo file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, fitWithin(logo, maxSide)); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("encode logo: %w", err)
	}
	return f.Name(), nil
}

// fitWithin downscales img so neither side exceeds maxSide, keeping the
// aspect ratio. Smaller images are copied unchanged.
func fitWithin(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxSide || h > maxSide {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(x, y, img.At(b.Min.X+x*b.Dx()/w, b.Min.Y+y*b.Dy()/h))
		}
	}
	return dst
}
