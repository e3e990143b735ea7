package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes to stderr (or any writer via NewWriterOutput).
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns an output writing to os.Stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{w: os.Stderr} }

// NewWriterOutput returns an output writing to w. Tests use it with a buffer.
func NewWriterOutput(w io.Writer) *ConsoleOutput { return &ConsoleOutput{w: w} }

func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// NullOutput discards everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }

// NewNopLogger returns a logger that drops all entries.
func NewNopLogger() Logger {
	return NewLogger(WithOutput(NullOutput{}), WithLevel(FatalLevel))
}
