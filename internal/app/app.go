// Package app wires configuration into the services shared by the HTTP
// server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/orchestrator"
	"github.com/cristianadrielbraun/qrstudio/internal/storage"
	"github.com/cristianadrielbraun/qrstudio/internal/verify"
)

// Services are the long-lived components built from a Config.
type Services struct {
	Encoder      *encoder.QREncoder
	Orchestrator *orchestrator.Orchestrator
	Store        storage.Store
}

// NewLogger returns a text logger on stderr at level.
func NewLogger(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// New builds the encoder, optimizer, orchestrator and store for cfg.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc := encoder.New(encoder.WithTempDir(cfg.TempDir), encoder.WithLogger(log))

	opts := []orchestrator.Option{orchestrator.WithLogger(log)}
	client, err := NewOptimizer(cfg, enc)
	if err != nil {
		return nil, err
	}
	if client != nil {
		opts = append(opts, orchestrator.WithOptimizer(client))
		log.WithField("backend", cfg.Optimizer).Info("optimizer enabled")
	} else {
		log.Info("optimizer disabled")
	}
	if cfg.VerifyScan {
		opts = append(opts, orchestrator.WithScanner(verify.NewScanner(true)))
	}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Services{
		Encoder:      enc,
		Orchestrator: orchestrator.New(enc, opts...),
		Store:        store,
	}, nil
}

// NewOptimizer returns the configured optimization client wrapped with the
// configured timeout, or nil when optimization is off.
func NewOptimizer(cfg config.Config, enc *encoder.QREncoder) (optimizer.Client, error) {
	var client optimizer.Client
	switch cfg.Optimizer {
	case config.OptimizerOff:
		return nil, nil
	case config.OptimizerStub:
		client = optimizer.NewSplitClient(optimizer.StubBackend{}, optimizer.StubBackend{})
	case config.OptimizerLocal:
		client = optimizer.NewSplitClient(optimizer.StubBackend{},
			optimizer.NewLocalPainter(verify.NewScanner(true), enc))
	case config.OptimizerOpenAI:
		backend, err := optimizer.NewOpenAIBackend(optimizer.OpenAISettings{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			ImageModel: cfg.OpenAIImageModel,
		})
		if err != nil {
			return nil, fmt.Errorf("openai backend: %w", err)
		}
		client = optimizer.NewSplitClient(backend, backend)
	case config.OptimizerFlow:
		opts := []optimizer.FlowOption{optimizer.WithAPIKey(cfg.FlowAPIKey)}
		if cfg.FlowReportOnly {
			opts = append(opts, optimizer.WithReportOnly())
		}
		if cfg.SplitFlow() {
			client = optimizer.NewSplitClient(
				optimizer.NewFlowClient(cfg.FlowReportURL, opts...),
				optimizer.NewFlowClient(cfg.FlowImageURL, opts...),
			)
		} else {
			client = optimizer.NewFlowClient(cfg.FlowURL, opts...)
		}
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Optimizer)
	}
	return optimizer.WithTimeout(client, cfg.OptimizeTimeout), nil
}

// NewStore returns the configured artifact store.
func NewStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageR2:
		return storage.NewR2Store(ctx, cfg.R2)
	default:
		return storage.NewMemoryStore(cfg.MemoryCapacity), nil
	}
}
