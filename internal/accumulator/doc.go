// Package accumulator implements the bounded running total at the heart of
// Tally.
//
// An Accumulator owns one optional uint32 slot reached through a Store and
// reports every applied submission to a Notifier. Submit enforces two rules
// before anything is written:
//
//   - a single value may not exceed the configured ceiling (ErrValueTooLarge)
//   - the new total may not wrap past math.MaxUint32 (ErrOverflow)
//
// Both failures leave the slot untouched and publish nothing. Callers are
// expected to have authenticated the submitter already and to serialize
// Submit calls against the same slot; the package does no locking itself.
//
//	acc := accumulator.New(50, accumulator.NewMemStore(), accumulator.NewMemNotifier())
//	ev, err := acc.Submit(ctx, "alice", 10)
//	if errors.Is(err, accumulator.ErrValueTooLarge) { /* reject */ }
//	total, ok, _ := acc.CurrentTotal(ctx) // 10, true
package accumulator
