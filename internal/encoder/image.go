package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	skip2 "github.com/skip2/go-qrcode"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// scaleExact resizes img to size x size using nearest neighbour sampling,
// which keeps module edges sharp.
func scaleExact(img image.Image, size int) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if bounds.Dx() == 0 || bounds.Dy() == 0 || size <= 0 {
		return dst
	}
	scaleX := float64(size) / float64(bounds.Dx())
	scaleY := float64(size) / float64(bounds.Dy())
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			ox := int(float64(x) / scaleX)
			oy := int(float64(y) / scaleY)
			if ox >= bounds.Dx() {
				ox = bounds.Dx() - 1
			}
			if oy >= bounds.Dy() {
				oy = bounds.Dy() - 1
			}
			dst.Set(x, y, img.At(bounds.Min.X+ox, bounds.Min.Y+oy))
		}
	}
	return dst
}

// ToJPEG flattens an artifact onto a white background and re-encodes it as
// JPEG. JPEG artifacts are returned unchanged.
func ToJPEG(a model.Artifact) (model.Artifact, error) {
	if a.Format == model.FormatJPEG {
		return a, nil
	}
	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return model.Artifact{}, fmt.Errorf("decode QR image: %w", err)
	}
	outBounds := img.Bounds()
	out := image.NewRGBA(outBounds)
	draw.Draw(out, outBounds, &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	draw.Draw(out, outBounds, img, outBounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 92}); err != nil {
		return model.Artifact{}, fmt.Errorf("encode JPEG: %w", err)
	}
	return model.Artifact{Format: model.FormatJPEG, Data: buf.Bytes()}, nil
}

// Terminal renders payload as block characters for a terminal preview,
// using the highest recovery level like the image encoder.
func Terminal(payload string) (string, error) {
	if payload == "" {
		return "", &model.EncodingError{Reason: "payload is empty"}
	}
	q, err := skip2.New(payload, skip2.Highest)
	if err != nil {
		return "", &model.EncodingError{Reason: "terminal render", Err: err}
	}
	return q.ToSmallString(false), nil
}
