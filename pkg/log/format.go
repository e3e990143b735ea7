package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// JSONFormatter renders one JSON object per line.
type JSONFormatter struct {
	// TimeFormat defaults to RFC3339Nano.
	TimeFormat string
}

func (f *JSONFormatter) Format(e *Entry) ([]byte, error) {
	tf := f.TimeFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	obj := make(map[string]any, len(e.Fields)+4)
	for k, v := range e.Fields {
		obj[k] = v
	}
	obj["ts"] = e.Timestamp.Format(tf)
	obj["level"] = e.Level.String()
	obj["msg"] = e.Message
	if e.Caller != "" {
		obj["caller"] = e.Caller
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// TextFormatter renders "ts LEVEL msg k=v ..." lines with keys sorted.
type TextFormatter struct {
	// ShowCaller appends the caller location.
	ShowCaller bool
}

func (f *TextFormatter) Format(e *Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(e.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
	buf.WriteByte(' ')
	fmt.Fprintf(&buf, "%-5s", e.Level.String())
	buf.WriteByte(' ')
	buf.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, e.Fields[k])
	}
	if f.ShowCaller && e.Caller != "" {
		buf.WriteString(" caller=")
		buf.WriteString(e.Caller)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
