// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and destination of the logger.
type Config struct {
	Level string
	// File, when set, receives the log through a rotating writer instead of
	// Stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Stderr     io.Writer
}

// New returns a logger for cfg. An empty level means warn.
func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: cfg.File == ""})

	level := logrus.WarnLevel
	if cfg.Level != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		level = l
	}
	logger.SetLevel(level)

	switch {
	case cfg.File != "":
		size := cfg.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		backups := cfg.MaxBackups
		if backups <= 0 {
			backups = 3
		}
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    size,
			MaxBackups: backups,
		})
	case cfg.Stderr != nil:
		logger.SetOutput(cfg.Stderr)
	default:
		logger.SetOutput(os.Stderr)
	}
	return logger, nil
}

// Discard returns an entry that drops everything.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// Component returns log tagged with name, or a discarding entry when log is
// nil.
func Component(log *logrus.Entry, name string) *logrus.Entry {
	if log == nil {
		log = Discard()
	}
	return log.WithField("component", name)
}
