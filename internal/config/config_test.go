package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var configKeys = []string{
	"PORT", "LOG_LEVEL", "OPTIMIZER", "OPTIMIZE_TIMEOUT", "OPENAI_API_KEY",
	"FLOW_URL", "FLOW_REPORT_URL", "FLOW_IMAGE_URL", "VERIFY_SCAN", "STORAGE",
	"MEMORY_CAPACITY", "R2_BUCKET", "DOWNLOAD_NAME",
}

// clearEnv blanks every key Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	c := Load()

	if c.Port != "8080" {
		t.Errorf("Port = %q, want %q", c.Port, "8080")
	}
	if c.LogLevel != logrus.InfoLevel {
		t.Errorf("LogLevel = %v, want info", c.LogLevel)
	}
	if c.Optimizer != OptimizerStub {
		t.Errorf("Optimizer = %q, want %q", c.Optimizer, OptimizerStub)
	}
	if c.OptimizeTimeout != 90*time.Second {
		t.Errorf("OptimizeTimeout = %v, want 90s", c.OptimizeTimeout)
	}
	if !c.VerifyScan {
		t.Error("VerifyScan should default to true")
	}
	if c.Storage != StorageMemory {
		t.Errorf("Storage = %q, want %q", c.Storage, StorageMemory)
	}
	if c.DownloadName != "qrcode.png" {
		t.Errorf("DownloadName = %q, want %q", c.DownloadName, "qrcode.png")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPTIMIZE_TIMEOUT", "5s")
	t.Setenv("VERIFY_SCAN", "false")
	t.Setenv("MEMORY_CAPACITY", "10")

	c := Load()
	if c.Port != "9090" {
		t.Errorf("Port = %q, want 9090", c.Port)
	}
	if c.LogLevel != logrus.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", c.LogLevel)
	}
	if c.OptimizeTimeout != 5*time.Second {
		t.Errorf("OptimizeTimeout = %v, want 5s", c.OptimizeTimeout)
	}
	if c.VerifyScan {
		t.Error("VerifyScan = true, want false")
	}
	if c.MemoryCapacity != 10 {
		t.Errorf("MemoryCapacity = %d, want 10", c.MemoryCapacity)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPTIMIZE_TIMEOUT", "soon")
	t.Setenv("MEMORY_CAPACITY", "many")
	t.Setenv("LOG_LEVEL", "loud")

	c := Load()
	if c.OptimizeTimeout != 90*time.Second {
		t.Errorf("OptimizeTimeout = %v, want default", c.OptimizeTimeout)
	}
	if c.MemoryCapacity != 256 {
		t.Errorf("MemoryCapacity = %d, want default", c.MemoryCapacity)
	}
	if c.LogLevel != logrus.InfoLevel {
		t.Errorf("LogLevel = %v, want info", c.LogLevel)
	}
}

func TestLoad_OptimizerSelection(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"openai key", map[string]string{"OPENAI_API_KEY": "sk-test"}, OptimizerOpenAI},
		{"flow url", map[string]string{"FLOW_URL": "http://flow"}, OptimizerFlow},
		{"split flow", map[string]string{"FLOW_REPORT_URL": "http://r", "FLOW_IMAGE_URL": "http://i"}, OptimizerFlow},
		{"explicit off", map[string]string{"OPTIMIZER": "OFF", "OPENAI_API_KEY": "sk-test"}, OptimizerOff},
		{"nothing", nil, OptimizerStub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := Load().Optimizer; got != tt.want {
				t.Errorf("Optimizer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"openai without key", func(c *Config) { c.Optimizer = OptimizerOpenAI }, true},
		{"flow without url", func(c *Config) { c.Optimizer = OptimizerFlow }, true},
		{"flow half split", func(c *Config) { c.Optimizer = OptimizerFlow; c.FlowReportURL = "http://r" }, true},
		{"unknown optimizer", func(c *Config) { c.Optimizer = "magic" }, true},
		{"r2 without bucket", func(c *Config) { c.Storage = StorageR2 }, true},
		{"unknown storage", func(c *Config) { c.Storage = "disk" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			c := Load()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local settings\nPORT=7070\nDOWNLOAD_NAME=\"my code.png\"\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv only fills keys that are unset, not ones set to "".
	os.Unsetenv("PORT")
	os.Unsetenv("DOWNLOAD_NAME")

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	c := Load()
	if c.Port != "7070" {
		t.Errorf("Port = %q, want 7070", c.Port)
	}
	if c.DownloadName != "my code.png" {
		t.Errorf("DownloadName = %q, want %q", c.DownloadName, "my code.png")
	}
}

func TestLoadEnvFiles_RealEnvTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "6060")
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PORT=7070\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFiles(envFile); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if got := os.Getenv("PORT"); got != "6060" {
		t.Errorf("PORT = %q, want 6060", got)
	}
}
