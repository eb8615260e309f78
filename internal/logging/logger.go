// Package logging provides the logrus-backed logger shared by the cryptex
// binaries.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Logger interface is used to allow tests to inject custom loggers.
type Logger interface {
	Fatalf(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Debug(...interface{})
	Warn(...interface{})
	Info(...interface{})
	Error(...interface{})
	Fatal(...interface{})
	WithField(string, interface{}) *log.Entry
	WithFields(log.Fields) *log.Entry
	WithError(error) *log.Entry
	Writer() io.Writer
	SetWriter(io.Writer)
	Close() error
}

// Format selects the log line encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const timestampFormat = "2006-01-02 15:04:05"

type Option func(*config) error

type config struct {
	writers []io.Writer
	closers []io.Closer
	format  Format
}

// WithWriter adds w to the log outputs. Without any writer the logger
// writes to stderr.
func WithWriter(w io.Writer) Option {
	return func(cfg *config) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		cfg.writers = append(cfg.writers, w)
		return nil
	}
}

// WithFile appends log lines to the file at path.
func WithFile(path string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		cfg.writers = append(cfg.writers, f)
		cfg.closers = append(cfg.closers, f)
		return nil
	}
}

// WithFormat selects text or JSON output.
func WithFormat(format string) Option {
	return func(cfg *config) error {
		f, err := ParseFormat(format)
		if err != nil {
			return err
		}
		cfg.format = f
		return nil
	}
}

// ParseFormat maps a format name to a Format. The empty name means text.
func ParseFormat(format string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(format))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log.format setting %q", format)
	}
}

type logger struct {
	*log.Logger
	closers []io.Closer
}

// NewLogger returns a new Logger instance backed by Logrus.
func NewLogger(level uint32) Logger {
	l, _ := New(level)
	return l
}

// New builds a Logger at the given level with the supplied options.
func New(level uint32, opts ...Option) (Logger, error) {
	cfg := &config{format: FormatText}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			for _, closer := range cfg.closers {
				_ = closer.Close()
			}
			return nil, err
		}
	}

	l := log.New()
	l.SetLevel(log.Level(level))
	switch len(cfg.writers) {
	case 0:
		l.Out = os.Stderr
	case 1:
		l.Out = cfg.writers[0]
	default:
		l.Out = io.MultiWriter(cfg.writers...)
	}
	if cfg.format == FormatJSON {
		l.Formatter = &log.JSONFormatter{TimestampFormat: timestampFormat}
	} else {
		l.Formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		}
	}
	return &logger{Logger: l, closers: cfg.closers}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() Logger {
	l, _ := New(uint32(log.PanicLevel), WithWriter(io.Discard))
	return l
}

func (l *logger) Writer() io.Writer {
	return l.Out
}

func (l *logger) SetWriter(writer io.Writer) {
	l.Out = writer
}

// Close releases files opened through WithFile.
func (l *logger) Close() error {
	var firstErr error
	for _, closer := range l.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}

// ParseLevel maps a level name to its logrus level.
func ParseLevel(level string) (uint32, error) {
	var l uint32
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = uint32(log.DebugLevel)
	case "info":
		l = uint32(log.InfoLevel)
	case "warn", "warning":
		l = uint32(log.WarnLevel)
	case "error":
		l = uint32(log.ErrorLevel)
	default:
		return 0, fmt.Errorf("invalid log.level setting %q", level)
	}
	return l, nil
}
