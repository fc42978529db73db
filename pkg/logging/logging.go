package logging

import (
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger is the leveled logging contract used across the services.
// go-logger loggers satisfy it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Provider hands out named child loggers of one go-logger root.
type Provider struct {
	root *glog.BaseLogger
}

// NewProvider builds a provider for the given level and format
// ("console", "json" or "pretty").
func NewProvider(level, format string) (*Provider, error) {
	options := []glog.Option{}

	if lvl := normalizeLevel(level); lvl != "" {
		options = append(options, glog.WithLevel(lvl))
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		options = append(options, glog.WithLoggerTypeConsole())
	case "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "pretty":
		options = append(options, glog.WithLoggerTypePretty())
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", format)
	}

	return &Provider{root: glog.NewLogger(options...)}, nil
}

// GetLogger returns the child logger for name.
func (p *Provider) GetLogger(name string) Logger {
	if p == nil || p.root == nil {
		return NoOp()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return p.root
	}
	return p.root.GetLogger(name)
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "info":
		return glog.Info
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	default:
		return ""
	}
}

type noop struct{}

func (noop) Debug(string, ...any) {}
func (noop) Info(string, ...any)  {}
func (noop) Warn(string, ...any)  {}
func (noop) Error(string, ...any) {}

// NoOp returns a logger that discards everything.
func NoOp() Logger { return noop{} }

// OrNoOp returns logger, or a discarding logger when it is nil.
func OrNoOp(logger Logger) Logger {
	if logger == nil {
		return NoOp()
	}
	return logger
}
