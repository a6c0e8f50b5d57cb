// Package conf handles the engine configuration: output format, decode
// pipeline tuning, EQ band layout, scoped-access storage and logging.
package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/soundvault/soundvault-go/internal/errors"
)

// LogSettings controls the rotating engine log file.
type LogSettings struct {
	Enabled bool   // true to enable file logging
	Path    string // path to the log file
}

// MainSettings contains application-wide settings.
type MainSettings struct {
	Name string      // instance name, used in log attributes
	Log  LogSettings // engine log settings
}

// AudioSettings describes the render target format and decode pipeline tuning.
type AudioSettings struct {
	SampleRate       int           // target sample rate in Hz
	Channels         int           // target channel count
	ChunkFrames      int           // frames per decoded chunk
	MaxPendingChunks int           // bounded decode queue depth
	DecodeBackoff    time.Duration // producer wait when the queue is full
	CompletionGuard  time.Duration // window after start during which finish signals are ignored
	Device           string        // output device name, empty for system default
}

// EQSettings describes the fixed equalizer band layout.
type EQSettings struct {
	BandFrequencies []float64 // center frequency per band, Hz
	BandWidth       float64   // peaking filter width in octaves
	MinGainDB       float64   // lower band gain bound
	MaxGainDB       float64   // upper band gain bound
}

// ScopeSettings configures the scoped-access registry.
type ScopeSettings struct {
	DataDir         string   // app-private directory, files inside need no grant
	StripPrefixes   []string // platform-internal prefixes removed during normalization
	BookmarkDB      string   // sqlite database holding bookmarks and presets
	NormalizeTTLMin int      // normalization cache TTL in minutes
}

// Settings is the root configuration structure.
type Settings struct {
	Debug bool

	Main  MainSettings
	Audio AudioSettings
	EQ    EQSettings
	Scope ScopeSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings struct
// and stores it as the package instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component(errors.ComponentConf).
			Category(errors.CategoryConfig).
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, config paths and reads the config file if present.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := DefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Run on defaults when no config file exists.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// DefaultConfigPaths returns the config file search paths, most specific first.
func DefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(configDir, "soundvault"),
		".",
	}, nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
