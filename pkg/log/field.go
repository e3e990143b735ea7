package log

import "time"

// Field is a single structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value any
}

func Str(key, value string) Field           { return Field{Key: key, Value: value} }
func Int(key string, value int) Field       { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field   { return Field{Key: key, Value: value} }
func Uint32(key string, value uint32) Field { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field     { return Field{Key: key, Value: value} }
func Any(key string, value any) Field       { return Field{Key: key, Value: value} }

// Duration records d in milliseconds under key.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.Milliseconds()}
}

// Err attaches err under the "error" key.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Component tags an entry with the emitting component.
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }
