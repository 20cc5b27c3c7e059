// Package config loads server and CLI settings from environment variables,
// optionally seeded from .env files.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/storage"
)

// Optimizer backends.
const (
	OptimizerOff    = "off"
	OptimizerStub   = "stub"
	OptimizerLocal  = "local"
	OptimizerOpenAI = "openai"
	OptimizerFlow   = "flow"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageR2     = "r2"
)

// Config holds all configuration values.
type Config struct {
	// Port is the HTTP listen port.
	Port     string
	LogLevel logrus.Level

	// Optimizer selects the design backend: off, stub, local, openai or
	// flow.
	// Empty means openai when OPENAI_API_KEY is set, flow when FLOW_URL is
	// set, stub otherwise.
	Optimizer       string
	OptimizeTimeout time.Duration

	OpenAIKey        string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIImageModel string

	// FlowURL is the combined endpoint. FlowReportURL and FlowImageURL,
	// when both set, switch the flow backend to split requests.
	FlowURL        string
	FlowReportURL  string
	FlowImageURL   string
	FlowAPIKey     string
	FlowReportOnly bool

	// VerifyScan decodes optimized images and falls back to the base code
	// when they no longer scan to the payload.
	VerifyScan bool

	Storage        string
	MemoryCapacity int
	R2             storage.R2Config

	// DownloadName is the attachment filename offered for downloads.
	DownloadName string
	TempDir      string
	MaxLogoBytes int64
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	c := Config{
		Port:             envOr("PORT", "8080"),
		LogLevel:         envLevel("LOG_LEVEL", logrus.InfoLevel),
		Optimizer:        strings.ToLower(os.Getenv("OPTIMIZER")),
		OptimizeTimeout:  envDuration("OPTIMIZE_TIMEOUT", 90*time.Second),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:      envOr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIImageModel: envOr("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		FlowURL:          os.Getenv("FLOW_URL"),
		FlowReportURL:    os.Getenv("FLOW_REPORT_URL"),
		FlowImageURL:     os.Getenv("FLOW_IMAGE_URL"),
		FlowAPIKey:       os.Getenv("FLOW_API_KEY"),
		FlowReportOnly:   envBool("FLOW_REPORT_ONLY", false),
		VerifyScan:       envBool("VERIFY_SCAN", true),
		Storage:          envOr("STORAGE", StorageMemory),
		MemoryCapacity:   envInt("MEMORY_CAPACITY", 256),
		R2: storage.R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			Bucket:          os.Getenv("R2_BUCKET"),
			Endpoint:        os.Getenv("R2_ENDPOINT"),
			Prefix:          envOr("R2_PREFIX", "qrcodes"),
		},
		DownloadName: envOr("DOWNLOAD_NAME", "qrcode.png"),
		TempDir:      envOr("TEMP_DIR", os.TempDir()),
		MaxLogoBytes: int64(envInt("MAX_LOGO_BYTES", 2<<20)),
	}
	if c.Optimizer == "" {
		switch {
		case c.OpenAIKey != "":
			c.Optimizer = OptimizerOpenAI
		case c.FlowURL != "" || (c.FlowReportURL != "" && c.FlowImageURL != ""):
			c.Optimizer = OptimizerFlow
		default:
			c.Optimizer = OptimizerStub
		}
	}
	return c
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Optimizer {
	case OptimizerOff, OptimizerStub, OptimizerLocal:
	case OptimizerOpenAI:
		if c.OpenAIKey == "" {
			return errors.New("OPTIMIZER=openai requires OPENAI_API_KEY")
		}
	case OptimizerFlow:
		if c.FlowURL == "" && (c.FlowReportURL == "" || c.FlowImageURL == "") {
			return errors.New("OPTIMIZER=flow requires FLOW_URL or both FLOW_REPORT_URL and FLOW_IMAGE_URL")
		}
	default:
		return errors.New("unknown OPTIMIZER " + strconv.Quote(c.Optimizer))
	}
	switch c.Storage {
	case StorageMemory:
	case StorageR2:
		if c.R2.Bucket == "" {
			return errors.New("STORAGE=r2 requires R2_BUCKET")
		}
	default:
		return errors.New("unknown STORAGE " + strconv.Quote(c.Storage))
	}
	return nil
}

// SplitFlow reports whether the flow backend uses separate report and image
// endpoints.
func (c Config) SplitFlow() bool {
	return c.FlowReportURL != "" && c.FlowImageURL != ""
}

// LoadEnvFiles loads the given .env files into the process environment.
// Variables already set are kept and missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envLevel(key string, fallback logrus.Level) logrus.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	lvl, err := logrus.ParseLevel(v)
	if err != nil {
		return fallback
	}
	return lvl
}
