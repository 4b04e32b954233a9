// Package logger provides the structured logging used across the bridge.
// It wraps logrus so construction and defaults live in one place; callers
// receive a *Logger and use the standard levelled methods plus WithField
// and WithError for structured context.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls how a Logger is constructed.
type LoggingConfig struct {
	Level      string // debug, info, warn, error (default info)
	Format     string // "json" or "text" (default text)
	Output     string // "stdout", "stderr" or "file" (default stdout)
	FilePrefix string // path prefix for log files when Output is "file"
}

// Logger is the bridge-wide logger. It embeds a logrus logger, so the
// usual Infof/Warnf/WithError/WithField methods are available directly.
type Logger struct {
	*logrus.Logger

	name string
}

// New builds a Logger from cfg. Unparseable values fall back to info-level
// text on stdout rather than failing construction.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(cfg.Output) {
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		if f, ferr := openLogFile(cfg.FilePrefix); ferr == nil {
			l.SetOutput(f)
		} else {
			l.SetOutput(os.Stdout)
			l.Warnf("log file unavailable, using stdout: %v", ferr)
		}
	default:
		l.SetOutput(os.Stdout)
	}

	return &Logger{Logger: l}
}

// NewDefault returns an info-level text logger for the named component.
// Every entry carries a "component" field so interleaved service output
// stays attributable.
func NewDefault(name string) *Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stdout)
	l.AddHook(componentHook{name: name})

	return &Logger{Logger: l, name: name}
}

// Name returns the component name the logger was created with, if any.
func (l *Logger) Name() string { return l.name }

func openLogFile(prefix string) (*os.File, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("log file prefix not configured")
	}
	path := fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("20060102"))
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type componentHook struct {
	name string
}

func (h componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h componentHook) Fire(e *logrus.Entry) error {
	e.Data["component"] = h.name
	return nil
}
