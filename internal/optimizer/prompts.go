package optimizer

import (
	"fmt"
	"strings"
)

const reportSystemPrompt = `You are a QR code design reviewer. You receive a rendered QR code and the
styling the user asked for. Judge scannability first: contrast, quiet zone,
finder pattern integrity, and how much of the symbol a logo may cover at
error correction level H. Then suggest concrete design improvements.
Answer in short Markdown with a verdict line followed by bullet points.`

func reportPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Review the attached QR code.\n")
	writeStyle(&sb, req)
	return sb.String()
}

func paintPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Restyle the attached QR code without changing its module layout. ")
	sb.WriteString("Keep the three finder patterns, the quiet zone and strong contrast so it still scans. ")
	sb.WriteString("Output a square image.\n")
	writeStyle(&sb, req)
	if req.LogoDataURI != "" {
		sb.WriteString("Place the second image as a centered logo covering at most 20% of the code.\n")
	}
	return sb.String()
}

func writeStyle(sb *strings.Builder, req Request) {
	if req.ShapeColor != "" {
		fmt.Fprintf(sb, "Module color: %s.\n", req.ShapeColor)
	}
	if req.EyeShape != "" {
		fmt.Fprintf(sb, "Finder (eye) shape: %s.\n", req.EyeShape)
	}
	if req.DotShape != "" {
		fmt.Fprintf(sb, "Data module (dot) shape: %s.\n", req.DotShape)
	}
	if req.LogoDataURI != "" {
		sb.WriteString("A logo is attached and should be embedded in the center.\n")
	}
	if req.UserInstructions != "" {
		fmt.Fprintf(sb, "User instructions: %s\n", req.UserInstructions)
	}
}
