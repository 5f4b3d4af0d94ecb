package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyPath     = "path"
	KeyBook     = "book"
	KeyPageSize = "page_size"
	KeyDebounce = "debounce"
	KeyLogLevel = "log.level"
	KeyLogFile  = "log.file"
)

type Config interface {
	BasePath() string
}

// Settings is the resolved configuration of a bands invocation.
type Settings struct {
	Path     string        `json:"path"`
	Book     string        `json:"book"`
	PageSize int           `json:"page_size"`
	Debounce time.Duration `json:"debounce"`
	LogLevel string        `json:"log_level"`
	LogFile  string        `json:"log_file"`
}

func (s *Settings) BasePath() string {
	return s.Path
}

// LoadConfig reads .bands from BANDS_CONFIG_PATH or the working directory,
// with BANDS_* environment overrides.
func LoadConfig() (*Settings, error) {
	v := viper.GetViper()
	v.SetDefault(KeyPath, "~/.bands.db")
	v.SetDefault(KeyPageSize, 25)
	v.SetDefault(KeyDebounce, "50ms")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetConfigName(".bands") // .yaml is implicit
	v.SetEnvPrefix("BANDS")
	v.AutomaticEnv()

	if override := os.Getenv("BANDS_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("store: read config: %w", err)
		}
	}
	return settingsFrom(v)
}

func settingsFrom(v *viper.Viper) (*Settings, error) {
	path, err := homedir.Expand(v.GetString(KeyPath))
	if err != nil {
		return nil, fmt.Errorf("store: expand %q: %w", v.GetString(KeyPath), err)
	}
	logFile := v.GetString(KeyLogFile)
	if logFile != "" {
		if logFile, err = homedir.Expand(logFile); err != nil {
			return nil, fmt.Errorf("store: expand %q: %w", v.GetString(KeyLogFile), err)
		}
	}
	return &Settings{
		Path:     path,
		Book:     v.GetString(KeyBook),
		PageSize: v.GetInt(KeyPageSize),
		Debounce: v.GetDuration(KeyDebounce),
		LogLevel: v.GetString(KeyLogLevel),
		LogFile:  logFile,
	}, nil
}
