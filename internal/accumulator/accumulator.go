package accumulator

import (
	"context"
	"fmt"
	"math"
)

// Identity is an authenticated submitter reference.
type Identity string

// Valid reports whether the identity is non-empty.
func (id Identity) Valid() bool { return id != "" }

func (id Identity) String() string { return string(id) }

// Event is published once per applied submission.
type Event struct {
	Total     uint32
	Submitter Identity
	// Value is the amount that produced Total.
	Value uint32
}

// Store is the persisted slot holding the total. ok is false until the first
// successful Put.
type Store interface {
	Get(ctx context.Context) (total uint32, ok bool, err error)
	Put(ctx context.Context, total uint32) error
}

// Reverter is implemented by stores that apply Put immediately. Submit calls
// Revert when Publish fails so the slot returns to its previous state.
// Stores that stage writes in a unit of work do not need it.
type Reverter interface {
	Revert(ctx context.Context) error
}

// Notifier is an append-only, ordered event sink.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Accumulator applies bounded additions to a Store.
type Accumulator struct {
	max      uint32
	store    Store
	notifier Notifier
}

// New returns an Accumulator with an inclusive per-submission ceiling.
func New(maxValue uint32, store Store, notifier Notifier) *Accumulator {
	return &Accumulator{max: maxValue, store: store, notifier: notifier}
}

// MaxValue returns the configured per-submission ceiling.
func (a *Accumulator) MaxValue() uint32 { return a.max }

// Submit adds value to the total on behalf of id. On success exactly one Put
// and one Publish have happened. On any error the slot is left as it was: a
// failed Publish is undone through Reverter when the store implements it,
// otherwise the caller's unit of work must discard the staged Put.
func (a *Accumulator) Submit(ctx context.Context, id Identity, value uint32) (Event, error) {
	if value > a.max {
		return Event{}, &SubmitError{Kind: KindValueTooLarge, Value: value, Max: a.max}
	}

	current, ok, err := a.store.Get(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("read total: %w", err)
	}

	next := value
	if ok {
		sum, fits := CheckedAdd(current, value)
		if !fits {
			return Event{}, &SubmitError{Kind: KindOverflow, Value: value, Max: a.max, Total: current}
		}
		next = sum
	}

	if err := a.store.Put(ctx, next); err != nil {
		return Event{}, fmt.Errorf("write total: %w", err)
	}
	ev := Event{Total: next, Submitter: id, Value: value}
	if err := a.notifier.Publish(ctx, ev); err != nil {
		if r, ok := a.store.(Reverter); ok {
			if rerr := r.Revert(context.WithoutCancel(ctx)); rerr != nil {
				return Event{}, fmt.Errorf("publish event: %w (revert total: %v)", err, rerr)
			}
		}
		return Event{}, fmt.Errorf("publish event: %w", err)
	}
	return ev, nil
}

// CurrentTotal reads the total without side effects.
func (a *Accumulator) CurrentTotal(ctx context.Context) (uint32, bool, error) {
	return a.store.Get(ctx)
}

// CheckedAdd returns a+b and true, or 0 and false when the sum does not fit
// in a uint32.
func CheckedAdd(a, b uint32) (uint32, bool) {
	if b > math.MaxUint32-a {
		return 0, false
	}
	return a + b, true
}
