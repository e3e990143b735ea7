package log

import (
	"bytes"
	"fmt"
	stdlog "log"
	"strings"
)

// Config is the declarative logger configuration.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text|json
}

// ApplyConfig builds a console logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var f Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		f = &TextFormatter{}
	case "json":
		f = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return NewLogger(WithLevel(lvl), WithFormatter(f), WithOutput(NewConsoleOutput())), nil
}

// stdWriter adapts Logger to io.Writer for the standard library logger.
type stdWriter struct {
	l Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimRight(p, "\n"))
	w.l.Info(msg, Str("source", "stdlog"))
	return len(p), nil
}

// ToStdLogger returns a *log.Logger that writes into l.
func ToStdLogger(l Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{l: l}, "", 0)
}

// RedirectStdLog points the standard library's default logger at l.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{l: l})
}
