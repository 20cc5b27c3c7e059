// Package encoder renders payload text into a PNG QR code with fixed
// parameters: 512 px wide, a 2-module quiet zone and the highest error
// correction level, which leaves room for logo overlays and shape
// substitution downstream.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// ECCLevel names the error correction level.
type ECCLevel string

const (
	ECCLow    ECCLevel = "Low"
	ECCMedium ECCLevel = "Medium"
	ECCQuart  ECCLevel = "Quartile"
	ECCHigh   ECCLevel = "High"
)

// Params are the rendering parameters of an Encoder.
type Params struct {
	Width  int      // output width and height in pixels
	Margin int      // quiet zone in modules
	ECC    ECCLevel // error correction level
}

// DefaultParams are used for every generated code.
var DefaultParams = Params{Width: 512, Margin: 2, ECC: ECCHigh}

// Encoder turns a payload into an image artifact.
type Encoder interface {
	Encode(ctx context.Context, payload string) (model.Artifact, error)
	Params() Params
}

// QREncoder implements Encoder on top of github.com/yeqown/go-qrcode.
type QREncoder struct {
	params  Params
	tempDir string
	log     logrus.FieldLogger
}

// Option configures a QREncoder.
type Option func(*QREncoder)

// WithTempDir sets where intermediate renders are written.
func WithTempDir(dir string) Option {
	return func(e *QREncoder) { e.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *QREncoder) { e.log = l }
}

// New returns a QREncoder using DefaultParams.
func New(opts ...Option) *QREncoder {
	e := &QREncoder{
		params:  DefaultParams,
		tempDir: os.TempDir(),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the fixed encoding parameters.
func (e *QREncoder) Params() Params { return e.params }

// Encode renders payload as a PNG. Payloads over the symbol capacity at the
// configured error correction level fail with *model.EncodingError.
func (e *QREncoder) Encode(ctx context.Context, payload string) (model.Artifact, error) {
	return e.encode(ctx, payload, look{fg: color.RGBA{0, 0, 0, 255}})
}

func (e *QREncoder) encode(ctx context.Context, payload string, lk look) (model.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return model.Artifact{}, err
	}
	if payload == "" {
		return model.Artifact{}, &model.EncodingError{Reason: "payload is empty"}
	}

	qrc, err := qrcode.NewWith(payload,
		qrcode.WithEncodingMode(qrcode.EncModeByte),
		eccOption(e.params.ECC),
	)
	if err != nil {
		return model.Artifact{}, &model.EncodingError{
			Reason: fmt.Sprintf("payload of %d bytes does not fit at ECC level %s", len(payload), e.params.ECC),
			Err:    err,
		}
	}

	dimension := qrc.Dimension()
	if dimension <= 0 {
		return model.Artifact{}, &model.EncodingError{Reason: "invalid QR matrix dimension"}
	}
	moduleSize := moduleWidth(dimension, e.params)

	img, err := e.render(qrc, moduleSize, dimension, lk)
	if err != nil {
		return model.Artifact{}, &model.EncodingError{Reason: "render QR image", Err: err}
	}

	scaled := scaleExact(img, e.params.Width)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return model.Artifact{}, &model.EncodingError{Reason: "encode PNG", Err: err}
	}

	e.log.WithFields(logrus.Fields{
		"modules":     dimension,
		"module_px":   moduleSize,
		"rendered_px": img.Bounds().Dx(),
		"styled":      lk.styled(),
		"bytes":       buf.Len(),
	}).Debug("encoded QR code")

	return model.NewPNG(buf.Bytes()), nil
}

// render writes the symbol through the standard writer into a temp PNG and
// decodes it back.
func (e *QREncoder) render(qrc *qrcode.QRCode, moduleSize, dimension int, lk look) (image.Image, error) {
	tmpFile := filepath.Join(e.tempDir, "qr_"+uuid.NewString()+".png")
	defer os.Remove(tmpFile)

	opts := []standard.ImageOption{
		standard.WithQRWidth(uint8(moduleSize)),
		standard.WithBorderWidth(e.params.Margin * moduleSize),
		standard.WithBgColor(color.RGBA{255, 255, 255, 255}),
		standard.WithFgColor(lk.fg),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	}
	if lk.shape != nil {
		opts = append(opts, lk.shape)
	}
	if lk.logo != nil {
		logoFile, err := e.writeLogo(lk.logo, dimension*moduleSize/logoFraction)
		if err != nil {
			return nil, err
		}
		defer os.Remove(logoFile)
		opts = append(opts, standard.WithLogoImageFilePNG(logoFile))
	}

	writer, err := standard.New(tmpFile, opts...)
	if err != nil {
		return nil, fmt.Errorf("create QR writer: %w", err)
	}
	if err := qrc.Save(writer); err != nil {
		return nil, fmt.Errorf("save QR image: %w", err)
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read QR image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("generated QR file is empty")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode QR image: %w", err)
	}
	return img, nil
}

// moduleWidth picks the smallest per-module pixel size so that the symbol
// plus its quiet zone covers the target width.
func moduleWidth(dimension int, p Params) int {
	total := dimension + 2*p.Margin
	m := (p.Width + total - 1) / total
	if m < 1 {
		m = 1
	}
	if m > 255 {
		m = 255
	}
	return m
}

func eccOption(level ECCLevel) qrcode.EncodeOption {
	switch level {
	case ECCLow:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionLow)
	case ECCMedium:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium)
	case ECCQuart:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart)
	default:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest)
	}
}
