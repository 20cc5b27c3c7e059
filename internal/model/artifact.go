package model

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
)

// Image formats understood by the pipeline.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatSVG  = "svg"
	FormatWebP = "webp"
	FormatGIF  = "gif"
)

var formatMIME = map[string]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatSVG:  "image/svg+xml",
	FormatWebP: "image/webp",
	FormatGIF:  "image/gif",
}

// Artifact is an encoded raster image together with its declared format.
// Artifacts are treated as immutable once produced.
type Artifact struct {
	Format string
	Data   []byte
}

// NewPNG wraps PNG bytes in an Artifact.
func NewPNG(data []byte) Artifact {
	return Artifact{Format: FormatPNG, Data: data}
}

// IsZero reports whether the artifact carries no image data.
func (a Artifact) IsZero() bool { return len(a.Data) == 0 }

// MIMEType returns the media type for the artifact format.
func (a Artifact) MIMEType() string {
	if mt, ok := formatMIME[a.Format]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Extension returns the file extension (with leading dot) for the format.
func (a Artifact) Extension() string {
	switch a.Format {
	case FormatJPEG:
		return ".jpg"
	case "":
		return ".bin"
	default:
		return "." + a.Format
	}
}

// DataURI encodes the artifact as a base64 data URI.
func (a Artifact) DataURI() string {
	return "data:" + a.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Equal reports whether both artifacts have the same format and bytes.
func (a Artifact) Equal(b Artifact) bool {
	return a.Format == b.Format && string(a.Data) == string(b.Data)
}

// ParseDataURI decodes a base64 data URI ("data:image/png;base64,...") into
// an Artifact.
func ParseDataURI(s string) (Artifact, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return Artifact{}, fmt.Errorf("not a data URI")
	}
	meta, body, ok := strings.Cut(rest, ",")
	if !ok {
		return Artifact{}, fmt.Errorf("data URI has no payload")
	}
	params := strings.Split(meta, ";")
	if params[len(params)-1] != "base64" {
		return Artifact{}, fmt.Errorf("data URI is not base64 encoded")
	}
	format, err := FormatFromMIME(params[0])
	if err != nil {
		return Artifact{}, err
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Artifact{}, fmt.Errorf("decode data URI: %w", err)
	}
	if len(data) == 0 {
		return Artifact{}, fmt.Errorf("data URI payload is empty")
	}
	return Artifact{Format: format, Data: data}, nil
}

// FormatFromMIME maps a media type such as "image/png" to a format name.
func FormatFromMIME(mediaType string) (string, error) {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return "", fmt.Errorf("invalid media type %q: %w", mediaType, err)
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	for f, m := range formatMIME {
		if m == mt {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported image type %q", mt)
}
