// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// AnimatorConfig represents the root XML configuration structure
type AnimatorConfig struct {
	XMLName xml.Name `xml:"CodeAnimator"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Playback configuration
	Playback PlaybackConfig `xml:"Playback"`

	// Narration configuration
	Narration NarrationConfig `xml:"Narration"`

	// Plan generation configuration
	Generation GenerationConfig `xml:"Generation"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains plan storage settings
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	PlansDirectory    string `xml:"PlansDirectory"`
	ExamplesDirectory string `xml:"ExamplesDirectory"`
	// Backend is "duckdb" or "files"
	Backend string `xml:"Backend"`
}

// PlaybackConfig contains player session settings
type PlaybackConfig struct {
	MaxPlayers             int  `xml:"MaxPlayers"`
	PlayerTimeoutMinutes   int  `xml:"PlayerTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	NarrationByDefault     bool `xml:"NarrationByDefault"`
}

// NarrationConfig contains settings for server-side speech (CLI playback)
type NarrationConfig struct {
	TTSCommand string `xml:"TTSCommand"`
	VoiceFlag  string `xml:"VoiceFlag"`
}

// GenerationConfig contains plan generator settings
type GenerationConfig struct {
	Model          string  `xml:"Model"`
	APIKey         string  `xml:"APIKey"`
	TimeoutSeconds int     `xml:"TimeoutSeconds"`
	Temperature    float32 `xml:"Temperature"`
	DefaultSteps   int     `xml:"DefaultSteps"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	DuckDBThreads           int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit       string `xml:"DuckDBMemoryLimit"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// envOverrides lists the environment variables that take precedence over the file
type envOverrides struct {
	Port           int    `env:"PORT"`
	DataDir        string `env:"DATA_DIR"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	APIKey         string `env:"API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL"`
	TTSCommand     string `env:"ANIMATOR_TTS_COMMAND"`
	StorageBackend string `env:"ANIMATOR_STORAGE"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AnimatorConfig {
	return &AnimatorConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "10M",
		},
		Storage: StorageConfig{
			DataDirectory:  "./data",
			PlansDirectory: "./data/plans",
			Backend:        "duckdb",
		},
		Playback: PlaybackConfig{
			MaxPlayers:             50,
			PlayerTimeoutMinutes:   30,
			CleanupIntervalMinutes: 5,
		},
		Narration: NarrationConfig{
			TTSCommand: "espeak",
			VoiceFlag:  "-v",
		},
		Generation: GenerationConfig{
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 90,
			Temperature:    0.4,
			DefaultSteps:   10,
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging:    true,
			DuckDBThreads:           2,
			DuckDBMemoryLimit:       "256MB",
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AnimatorConfig, error) {
	config := DefaultConfig()

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	if err := config.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AnimatorConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Code Animator Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AnimatorConfig) applyEnvironmentOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	if o.DataDir != "" {
		c.Storage.DataDirectory = o.DataDir
		c.Storage.PlansDirectory = filepath.Join(o.DataDir, "plans")
	}
	// GEMINI_API_KEY wins over the generic API_KEY
	if o.APIKey != "" {
		c.Generation.APIKey = o.APIKey
	}
	if o.GeminiAPIKey != "" {
		c.Generation.APIKey = o.GeminiAPIKey
	}
	if o.GeminiModel != "" {
		c.Generation.Model = o.GeminiModel
	}
	if o.TTSCommand != "" {
		c.Narration.TTSCommand = o.TTSCommand
	}
	if o.StorageBackend != "" {
		c.Storage.Backend = o.StorageBackend
	}
	return nil
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AnimatorConfig) resolvePaths(configDir string) {
	for _, p := range []*string{&c.Storage.DataDirectory, &c.Storage.PlansDirectory, &c.Storage.ExamplesDirectory} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetDataDir returns the absolute data directory path
func (c *AnimatorConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetServerAddr returns the server bind address
func (c *AnimatorConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// PlayerTimeout returns how long an idle player is kept.
func (c *AnimatorConfig) PlayerTimeout() time.Duration {
	return time.Duration(c.Playback.PlayerTimeoutMinutes) * time.Minute
}

// CleanupInterval returns the period of the idle player sweep.
func (c *AnimatorConfig) CleanupInterval() time.Duration {
	if c.Playback.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Playback.CleanupIntervalMinutes) * time.Minute
}

// GenerationTimeout returns the per-request generation timeout.
func (c *AnimatorConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories
func (c *AnimatorConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.PlansDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
