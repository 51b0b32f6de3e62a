// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < explicit file < flags.
// The model credential is the only value read from the environment.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// CredentialEnv names the environment variable holding the model API key.
const CredentialEnv = "OPENAI_API_KEY"

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Config holds all AutoDoc configuration.
type Config struct {
	Version int `yaml:"version"`

	Report    ReportConfig    `yaml:"report"`
	Summary   SummaryConfig   `yaml:"summary"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ReportConfig controls report defaults.
type ReportConfig struct {
	OutputDir   string  `yaml:"output_dir"`
	Title       string  `yaml:"title"`
	Logo        string  `yaml:"logo"`
	ChartWidth  float64 `yaml:"chart_width"`  // inches
	ChartHeight float64 `yaml:"chart_height"` // inches
}

// SummaryConfig controls the narrative generator.
type SummaryConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Endpoint    string        `yaml:"endpoint"` // empty = OpenAI
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ServerConfig for the HTTP server.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Host          string `yaml:"host"`
	MaxUploadSize int64  `yaml:"max_upload_size"` // bytes
}

// StorageConfig for artifact publishing.
type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config for S3-compatible object storage.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// TelemetryConfig for optional trace export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Report: ReportConfig{
			OutputDir:   "output",
			Title:       "AutoDoc Report",
			ChartWidth:  6,
			ChartHeight: 4,
		},
		Summary: SummaryConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     60 * time.Second,
		},
		Server: ServerConfig{
			Port:          8080,
			Host:          "localhost",
			MaxUploadSize: 200 << 20,
		},
		Storage: StorageConfig{
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "autodoc",
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded

	// Lookup resolves the credential. Defaults to os.LookupEnv.
	Lookup LookupFunc
	// SearchPaths overrides the system/user/project search list when non-nil.
	SearchPaths []string
	// File is an explicit config file. Unlike search paths it must exist.
	File string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
		Lookup: os.LookupEnv,
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	paths := m.SearchPaths
	if paths == nil {
		paths = defaultPaths()
	}
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			// Missing files are fine, broken ones are not.
			if !os.IsNotExist(err) {
				return aderrors.Wrap(err, aderrors.CodeInvalidConfig, "cannot load config").
					WithContext("path", path)
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	if m.File != "" {
		if err := m.loadFile(m.File); err != nil {
			return aderrors.Wrap(err, aderrors.CodeInvalidConfig, "cannot load config").
				WithContext("path", m.File)
		}
		m.paths = append(m.paths, m.File)
	}

	m.loadEnv()

	return nil
}

// defaultPaths returns config file paths in priority order.
func defaultPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/autodoc/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".autodoc", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".autodoc.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	dst := m.config

	// Report
	mergeString(&dst.Report.OutputDir, src.Report.OutputDir)
	mergeString(&dst.Report.Title, src.Report.Title)
	mergeString(&dst.Report.Logo, src.Report.Logo)
	if src.Report.ChartWidth != 0 {
		dst.Report.ChartWidth = src.Report.ChartWidth
	}
	if src.Report.ChartHeight != 0 {
		dst.Report.ChartHeight = src.Report.ChartHeight
	}

	// Summary
	mergeString(&dst.Summary.APIKey, src.Summary.APIKey)
	mergeString(&dst.Summary.Model, src.Summary.Model)
	mergeString(&dst.Summary.Endpoint, src.Summary.Endpoint)
	if src.Summary.Temperature != 0 {
		dst.Summary.Temperature = src.Summary.Temperature
	}
	if src.Summary.Timeout != 0 {
		dst.Summary.Timeout = src.Summary.Timeout
	}

	// Server
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	mergeString(&dst.Server.Host, src.Server.Host)
	if src.Server.MaxUploadSize != 0 {
		dst.Server.MaxUploadSize = src.Server.MaxUploadSize
	}

	// Storage
	s3 := &dst.Storage.S3
	mergeString(&s3.Bucket, src.Storage.S3.Bucket)
	mergeString(&s3.Prefix, src.Storage.S3.Prefix)
	mergeString(&s3.Region, src.Storage.S3.Region)
	mergeString(&s3.Endpoint, src.Storage.S3.Endpoint)
	mergeString(&s3.AccessKeyID, src.Storage.S3.AccessKeyID)
	mergeString(&s3.SecretAccessKey, src.Storage.S3.SecretAccessKey)
	if src.Storage.S3.PathStyle {
		s3.PathStyle = true
	}

	// Telemetry
	if src.Telemetry.Enabled {
		dst.Telemetry.Enabled = true
	}
	if src.Telemetry.Insecure {
		dst.Telemetry.Insecure = true
	}
	mergeString(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)
	mergeString(&dst.Telemetry.ServiceName, src.Telemetry.ServiceName)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// loadEnv applies the credential from the environment.
func (m *Manager) loadEnv() {
	if m.Lookup == nil {
		return
	}
	if v, ok := m.Lookup(CredentialEnv); ok && v != "" {
		m.config.Summary.APIKey = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Redacted returns a copy of the configuration with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Summary.APIKey != "" {
		out.Summary.APIKey = "****"
	}
	if out.Storage.S3.SecretAccessKey != "" {
		out.Storage.S3.SecretAccessKey = "****"
	}
	return &out
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
