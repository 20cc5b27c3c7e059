// Command qrgen generates a QR code for a URL or contact card from the
// command line and writes it to a file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cristianadrielbraun/qrstudio/internal/app"
	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/model"
	"github.com/cristianadrielbraun/qrstudio/internal/orchestrator"
	"github.com/cristianadrielbraun/qrstudio/internal/payload"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "qrgen:", err)
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("qrgen", flag.ContinueOnError)
	kind := fs.String("kind", "url", "payload kind: url or contact")
	rawURL := fs.String("url", "", "URL to encode")
	name := fs.String("name", "", "contact name")
	phone := fs.String("phone", "", "contact phone")
	email := fs.String("email", "", "contact email")
	org := fs.String("org", "", "contact organization")
	title := fs.String("title", "", "contact title")
	out := fs.String("o", "qrcode.png", "output file (.png or .jpg)")
	term := fs.Bool("term", false, "print a terminal preview")
	optimize := fs.Bool("optimize", false, "run the configured optimizer")
	shapeColor := fs.String("color", "", "module color #RRGGBB (optimizer)")
	eyeShape := fs.String("eye", "", "eye shape: square or rounded (optimizer)")
	dotShape := fs.String("dot", "", "dot shape: square, dots or rounded (optimizer)")
	logoPath := fs.String("logo", "", "logo image file (optimizer)")
	instructions := fs.String("instructions", "", "free-text styling instructions (optimizer)")
	reportPath := fs.String("report", "", "write the optimization report (Markdown) to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.LoadEnvFiles(".env.local", ".env"); err != nil {
		return err
	}
	cfg := config.Load()
	if !*optimize {
		cfg.Optimizer = config.OptimizerOff
	}
	log := app.NewLogger(cfg.LogLevel)
	ctx := context.Background()

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	data := payload.Data{
		URL: *rawURL,
		Contact: payload.Contact{
			Name:         *name,
			Phone:        *phone,
			Email:        *email,
			Organization: *org,
			Title:        *title,
		},
	}

	var res *orchestrator.Result
	if *optimize {
		style := model.StyleSpec{
			ShapeColor:   *shapeColor,
			EyeShape:     model.EyeShape(*eyeShape),
			DotShape:     model.DotShape(*dotShape),
			Instructions: *instructions,
		}
		if *logoPath != "" {
			logo, err := readLogo(*logoPath)
			if err != nil {
				return err
			}
			style.Logo = &logo
		}
		res, err = svc.Orchestrator.GenerateAndOptimize(ctx, payload.Kind(*kind), data, &style)
	} else {
		res, err = svc.Orchestrator.Generate(ctx, payload.Kind(*kind), data)
	}
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	art := res.Artifact
	if ext := strings.ToLower(filepath.Ext(*out)); ext == ".jpg" || ext == ".jpeg" {
		if art, err = encoder.ToJPEG(art); err != nil {
			return err
		}
	}
	if err := os.WriteFile(*out, art.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *out, len(art.Data))

	if res.Report != "" {
		if *reportPath != "" {
			if err := os.WriteFile(*reportPath, []byte(res.Report), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", *reportPath, err)
			}
		} else {
			fmt.Println(res.Report)
		}
	}

	if *term {
		s, err := encoder.Terminal(res.Payload)
		if err != nil {
			return err
		}
		fmt.Print(s)
	}
	return nil
}

func readLogo(path string) (model.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("read logo: %w", err)
	}
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = model.FormatPNG
	case ".jpg", ".jpeg":
		format = model.FormatJPEG
	case ".svg":
		format = model.FormatSVG
	case ".gif":
		format = model.FormatGIF
	default:
		return model.Artifact{}, model.Invalid("logo", "unsupported file type "+filepath.Ext(path))
	}
	return model.Artifact{Format: format, Data: data}, nil
}
