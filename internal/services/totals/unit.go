package totalsvc

import (
	"context"
	"errors"

	"github.com/rzbill/tally/internal/accumulator"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
)

// unit stages one submission's effects. The accumulator sees committed state
// plus its own pending write; nothing reaches Pebble until the service
// commits the unit.
type unit struct {
	db  *pebblestore.DB
	key []byte

	total   uint32
	written bool
	events  []accumulator.Event
}

func newUnit(db *pebblestore.DB, key []byte) *unit {
	return &unit{db: db, key: key}
}

func (u *unit) Get(ctx context.Context) (uint32, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if u.written {
		return u.total, true, nil
	}
	return readTotal(u.db, u.key)
}

func (u *unit) Put(ctx context.Context, total uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.total, u.written = total, true
	return nil
}

func (u *unit) Publish(ctx context.Context, ev accumulator.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.events = append(u.events, ev)
	return nil
}

func readTotal(r pebblestore.Reader, key []byte) (uint32, bool, error) {
	b, err := r.Get(key)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err := decodeTotal(b)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
