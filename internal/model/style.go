package model

import (
	"image/color"
	"strconv"
	"strings"
)

// EyeShape selects how finder patterns are drawn.
type EyeShape string

const (
	EyeSquare  EyeShape = "square"
	EyeRounded EyeShape = "rounded"
)

// DotShape selects how data modules are drawn.
type DotShape string

const (
	DotSquare  DotShape = "square"
	DotDots    DotShape = "dots"
	DotRounded DotShape = "rounded"
)

// StyleSpec describes the requested look of an optimized code. Empty fields
// are absent and are omitted from optimization requests.
type StyleSpec struct {
	ShapeColor   string
	EyeShape     EyeShape
	DotShape     DotShape
	Logo         *Artifact
	Instructions string
}

// IsEmpty reports whether no styling was requested.
func (s StyleSpec) IsEmpty() bool {
	return s.ShapeColor == "" && s.EyeShape == "" && s.DotShape == "" &&
		(s.Logo == nil || s.Logo.IsZero()) && strings.TrimSpace(s.Instructions) == ""
}

// Validate checks enum values and the color format.
func (s StyleSpec) Validate() error {
	if s.ShapeColor != "" {
		if _, ok := ParseHexColor(s.ShapeColor); !ok {
			return Invalid("shapeColor", "must be a #RRGGBB color")
		}
	}
	switch s.EyeShape {
	case "", EyeSquare, EyeRounded:
	default:
		return Invalid("eyeShape", "must be one of square, rounded")
	}
	switch s.DotShape {
	case "", DotSquare, DotDots, DotRounded:
	default:
		return Invalid("dotShape", "must be one of square, dots, rounded")
	}
	if s.Logo != nil && s.Logo.IsZero() {
		return Invalid("logo", "is empty")
	}
	return nil
}

// ParseHexColor parses "#RRGGBB" (leading # optional) into an opaque color.
func ParseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	r, err1 := strconv.ParseUint(s[0:2], 16, 8)
	g, err2 := strconv.ParseUint(s[2:4], 16, 8)
	b, err3 := strconv.ParseUint(s[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}, true
}

// OptimizationResult is the outcome of a successful optimization call.
type OptimizationResult struct {
	Artifact Artifact
	Report   string
}
