package namespace

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
)

// Meta records when a namespace was created and the ceiling it was created
// with. The ceiling is informational; the running configuration wins.
type Meta struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
	MaxValue    uint32 `json:"maxValue"`
}

var nsMetaPrefix = []byte("nsmeta/")

func nsMetaKey(ns string) []byte {
	k := make([]byte, 0, len(nsMetaPrefix)+len(ns))
	k = append(k, nsMetaPrefix...)
	return append(k, ns...)
}

// Get loads the meta record for name. Missing namespaces return
// pebblestore.ErrNotFound.
func Get(db *pebblestore.DB, name string) (Meta, error) {
	b, err := db.Get(nsMetaKey(name))
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("decode namespace %q: %w", name, err)
	}
	return m, nil
}

// EnsureNamespace creates the meta record if absent and returns the stored one.
// A corrupt record is rewritten.
func EnsureNamespace(db *pebblestore.DB, name string, maxValue uint32) (Meta, error) {
	m, err := Get(db, name)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pebblestore.ErrNotFound) && !isDecodeErr(err) {
		return Meta{}, err
	}
	m = Meta{Name: name, CreatedAtMs: time.Now().UnixMilli(), MaxValue: maxValue}
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(nsMetaKey(name), b); err != nil {
		return Meta{}, err
	}
	return m, nil
}

func isDecodeErr(err error) bool {
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	return errors.As(err, &se) || errors.As(err, &te)
}
