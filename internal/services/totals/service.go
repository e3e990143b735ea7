package totalsvc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rzbill/tally/internal/accumulator"
	"github.com/rzbill/tally/internal/auth"
	"github.com/rzbill/tally/internal/eventlog"
	"github.com/rzbill/tally/internal/metrics"
	"github.com/rzbill/tally/internal/runtime"
	logpkg "github.com/rzbill/tally/pkg/log"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// ErrInvalidArgument marks malformed watch or history requests.
var ErrInvalidArgument = errors.New("invalid argument")

var errNotBool = errors.New("filter must evaluate to a bool")

// Service runs submissions for one slot. Submit calls are serialized so the
// read-modify-write of the total is atomic.
type Service struct {
	rt       *runtime.Runtime
	log      *eventlog.Log
	logger   logpkg.Logger
	metrics  *metrics.Registry
	totalKey []byte
	maxValue uint32
	poll     time.Duration
	batchMax int
	now      func() time.Time

	mu sync.Mutex
}

// New returns a Service using a default logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, nil)
}

// NewWithLogger returns a Service using the provided logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = rt.Logger()
	}
	cfg := rt.Config()
	s := &Service{
		rt:       rt,
		log:      rt.Log(),
		logger:   logger.With(logpkg.Component("totals")),
		metrics:  rt.Metrics(),
		totalKey: KeyTotal(cfg.Namespace, cfg.Slot),
		maxValue: cfg.MaxValue,
		poll:     time.Duration(cfg.Watch.PollMs) * time.Millisecond,
		batchMax: cfg.Watch.BatchMax,
		now:      time.Now,
	}
	if s.poll <= 0 {
		s.poll = 250 * time.Millisecond
	}
	if s.batchMax <= 0 {
		s.batchMax = 128
	}
	if total, ok, err := readTotal(rt.DB(), s.totalKey); err == nil && ok {
		s.metrics.SetTotal(total)
	}
	return s
}

// MaxValue returns the per-submission ceiling.
func (s *Service) MaxValue() uint32 { return s.maxValue }

// Submit adds value to the total on behalf of id. The new total and its event
// are committed together; on any error neither is.
func (s *Service) Submit(ctx context.Context, id accumulator.Identity, value uint32) (Event, error) {
	if !id.Valid() {
		return Event{}, fmt.Errorf("%w: empty identity", auth.ErrUnauthenticated)
	}
	t0 := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	u := newUnit(s.rt.DB(), s.totalKey)
	acc := accumulator.New(s.maxValue, u, u)
	if _, err := acc.Submit(ctx, id, value); err != nil {
		s.observeRejection(id, value, err)
		return Event{}, err
	}
	if !u.written || len(u.events) != 1 {
		s.metrics.ObserveSubmission(metrics.OutcomeError)
		return Event{}, errors.New("accumulator produced no staged effects")
	}

	staged := u.events[0]
	ev := Event{
		Total:     staged.Total,
		Submitter: staged.Submitter.String(),
		Value:     staged.Value,
		AtMs:      s.now().UnixMilli(),
	}
	seqs, err := s.log.AppendWith(ctx, []eventlog.AppendRecord{encodeEvent(ev)}, func(b *pebble.Batch) error {
		return b.Set(s.totalKey, encodeTotal(u.total), nil)
	})
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeError)
		return Event{}, fmt.Errorf("commit submission: %w", err)
	}
	ev.Seq = seqs[0]

	s.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	s.metrics.SetTotal(ev.Total)
	s.logger.With(
		logpkg.Str("submitter", ev.Submitter),
		logpkg.Uint32("value", value),
		logpkg.Uint32("total", ev.Total),
		logpkg.Uint64("seq", ev.Seq),
		logpkg.Duration("dur", time.Since(t0)),
	).Debug("totals.submit")
	return ev, nil
}

func (s *Service) observeRejection(id accumulator.Identity, value uint32, err error) {
	outcome := metrics.OutcomeError
	switch accumulator.KindOf(err) {
	case accumulator.KindValueTooLarge:
		outcome = metrics.OutcomeValueTooLarge
	case accumulator.KindOverflow:
		outcome = metrics.OutcomeOverflow
	}
	s.metrics.ObserveSubmission(outcome)
	s.logger.Debug("totals.submit rejected",
		logpkg.Str("submitter", id.String()),
		logpkg.Uint32("value", value),
		logpkg.Str("outcome", outcome),
		logpkg.Err(err))
}

// Total returns the committed total; ok is false until the first accepted
// submission.
func (s *Service) Total(ctx context.Context) (uint32, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	return readTotal(s.rt.DB(), s.totalKey)
}

// Current returns the committed total and the seq of the event that set it.
// Both come from one snapshot so a concurrent submit cannot split them.
func (s *Service) Current(ctx context.Context) (Current, error) {
	if err := ctx.Err(); err != nil {
		return Current{}, err
	}
	snap := s.rt.DB().NewSnapshot()
	defer snap.Close()
	total, ok, err := readTotal(snap, s.totalKey)
	if err != nil {
		return Current{}, err
	}
	items, _, err := s.log.ReadAt(snap, eventlog.ReadOptions{Limit: 1, Reverse: true})
	if err != nil {
		return Current{}, err
	}
	cur := Current{Total: total, Initialized: ok}
	if len(items) > 0 {
		cur.Seq = items[0].Seq
	}
	return cur, nil
}

// Event returns the committed event at seq, or eventlog.ErrNotFound.
func (s *Service) Event(ctx context.Context, seq uint64) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if seq == 0 {
		return Event{}, fmt.Errorf("%w: seq must be positive", ErrInvalidArgument)
	}
	it, err := s.log.Get(seq)
	if err != nil {
		return Event{}, err
	}
	return decodeEvent(it)
}

// History returns a page of committed events and the seq to pass as From for
// the next page, zero when there is none. The page is read from a snapshot.
func (s *Service) History(ctx context.Context, opts HistoryOptions) ([]Event, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	var start eventlog.Token
	if opts.From > 0 {
		start = eventlog.TokenFromSeq(opts.From)
	}
	snap := s.rt.DB().NewSnapshot()
	defer snap.Close()
	items, next, err := s.log.ReadAt(snap, eventlog.ReadOptions{Start: start, Limit: limit, Reverse: opts.Reverse})
	if err != nil {
		return nil, 0, err
	}
	out := make([]Event, 0, len(items))
	for _, it := range items {
		ev, err := decodeEvent(it)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ev)
	}
	return out, next.Seq(), nil
}

// ValidateFilter compiles expr without running it.
func ValidateFilter(expr string) error {
	if _, err := newCELFilter(expr); err != nil {
		return fmt.Errorf("%w: filter: %v", ErrInvalidArgument, err)
	}
	return nil
}

// resolveStart maps a From option to the first seq to deliver.
func (s *Service) resolveStart(from string) (uint64, error) {
	switch f := strings.ToLower(strings.TrimSpace(from)); f {
	case "", "latest":
		return s.log.LastSeq() + 1, nil
	case "earliest":
		return 1, nil
	default:
		seq, err := strconv.ParseUint(f, 10, 64)
		if err != nil || seq == 0 {
			return 0, fmt.Errorf("%w: from %q must be latest, earliest or a positive seq", ErrInvalidArgument, from)
		}
		return seq, nil
	}
}

// Watch streams committed events in order to sink until ctx is done or sink
// fails. It returns ctx.Err() on cancellation.
func (s *Service) Watch(ctx context.Context, opts WatchOptions, sink WatchSink) error {
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return fmt.Errorf("%w: filter: %v", ErrInvalidArgument, err)
	}
	next, err := s.resolveStart(opts.From)
	if err != nil {
		return err
	}
	timer := time.NewTimer(s.poll)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Take the signal before reading so an append landing between the
		// read and the wait still wakes us.
		signal := s.log.AppendSignal()
		items, _, err := s.log.Read(eventlog.ReadOptions{Start: eventlog.TokenFromSeq(next), Limit: s.batchMax})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.poll)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-signal:
			case <-timer.C:
			}
			continue
		}
		nowMs := s.now().UnixMilli()
		for _, it := range items {
			ev, err := decodeEvent(it)
			if err != nil {
				return err
			}
			next = it.Seq + 1
			if !filter.Eval(ev, nowMs) {
				continue
			}
			if err := sink.Send(ev); err != nil {
				return err
			}
		}
	}
}
