package totalsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rzbill/tally/internal/accumulator"
	"github.com/rzbill/tally/internal/auth"
	cfgpkg "github.com/rzbill/tally/internal/config"
	"github.com/rzbill/tally/internal/eventlog"
	"github.com/rzbill/tally/internal/runtime"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
)

func testConfig() cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.Auth.Disabled = true
	cfg.Watch.PollMs = 20
	return cfg
}

func openRuntime(t *testing.T, dir string) *runtime.Runtime {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways, Config: testConfig()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	return rt
}

func newTestService(t *testing.T) (*Service, *runtime.Runtime) {
	t.Helper()
	rt := openRuntime(t, t.TempDir())
	t.Cleanup(func() { _ = rt.Close() })
	return New(rt), rt
}

func mustTotal(t *testing.T, s *Service) (uint32, bool) {
	t.Helper()
	v, ok, err := s.Total(context.Background())
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	return v, ok
}

func TestSubmitFirstValue(t *testing.T) {
	s, _ := newTestService(t)
	if _, ok := mustTotal(t, s); ok {
		t.Fatalf("fresh slot must be uninitialized")
	}
	ev, err := s.Submit(context.Background(), "1", 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ev.Total != 10 || ev.Submitter != "1" || ev.Seq != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if v, ok := mustTotal(t, s); !ok || v != 10 {
		t.Fatalf("total = %d,%v", v, ok)
	}
}

func TestSubmitAccumulates(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	for _, v := range []uint32{10, 20} {
		if _, err := s.Submit(ctx, "1", v); err != nil {
			t.Fatalf("submit %d: %v", v, err)
		}
	}
	if v, _ := mustTotal(t, s); v != 30 {
		t.Fatalf("total = %d want 30", v)
	}
	evs, _, err := s.History(ctx, HistoryOptions{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(evs) != 2 || evs[0].Total != 10 || evs[1].Total != 30 {
		t.Fatalf("history = %+v", evs)
	}
}

func TestSubmitValueTooLarge(t *testing.T) {
	s, rt := newTestService(t)
	_, err := s.Submit(context.Background(), "1", 51)
	if !errors.Is(err, accumulator.ErrValueTooLarge) {
		t.Fatalf("want ErrValueTooLarge, got %v", err)
	}
	if _, ok := mustTotal(t, s); ok {
		t.Fatalf("total must stay absent")
	}
	if rt.Log().LastSeq() != 0 {
		t.Fatalf("no event may be committed")
	}
	want := `
# HELP tally_submissions_total Submissions handled by the accumulator, by outcome.
# TYPE tally_submissions_total counter
tally_submissions_total{outcome="value_too_large"} 1
`
	if err := testutil.GatherAndCompare(rt.Metrics().Gatherer(), strings.NewReader(want), "tally_submissions_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

// seedTotal writes a committed total directly, as if earlier submissions had
// produced it.
func seedTotal(t *testing.T, rt *runtime.Runtime, v uint32) {
	t.Helper()
	cfg := rt.Config()
	if err := rt.DB().Set(KeyTotal(cfg.Namespace, cfg.Slot), encodeTotal(v)); err != nil {
		t.Fatalf("seed total: %v", err)
	}
}

func TestSubmitOverflowLeavesTotal(t *testing.T) {
	s, rt := newTestService(t)
	seedTotal(t, rt, 4_294_967_290)
	_, err := s.Submit(context.Background(), "1", 10)
	if !errors.Is(err, accumulator.ErrOverflow) {
		t.Fatalf("want ErrOverflow, got %v", err)
	}
	if v, ok := mustTotal(t, s); !ok || v != 4_294_967_290 {
		t.Fatalf("total = %d,%v want unchanged", v, ok)
	}
	if rt.Log().LastSeq() != 0 {
		t.Fatalf("no event may be committed")
	}
}

func TestSubmitRequiresIdentity(t *testing.T) {
	s, _ := newTestService(t)
	if _, err := s.Submit(context.Background(), "", 1); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestSubmitCancelledCommitsNothing(t *testing.T) {
	s, rt := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Submit(ctx, "1", 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if _, ok := mustTotal(t, s); ok {
		t.Fatalf("total must stay absent")
	}
	if rt.Log().LastSeq() != 0 {
		t.Fatalf("no event may be committed")
	}
}

func TestTotalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	rt := openRuntime(t, dir)
	s := New(rt)
	for _, v := range []uint32{7, 8, 9} {
		if _, err := s.Submit(context.Background(), "alice", v); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	_ = rt.Close()

	rt = openRuntime(t, dir)
	defer rt.Close()
	s = New(rt)
	if v, ok := mustTotal(t, s); !ok || v != 24 {
		t.Fatalf("total after reopen = %d,%v", v, ok)
	}
	ev, err := s.Submit(context.Background(), "bob", 1)
	if err != nil {
		t.Fatalf("submit after reopen: %v", err)
	}
	if ev.Seq != 4 || ev.Total != 25 {
		t.Fatalf("event after reopen = %+v", ev)
	}
}

func TestConcurrentSubmitsSumExactly(t *testing.T) {
	s, _ := newTestService(t)
	const workers, each = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if _, err := s.Submit(context.Background(), "w", 3); err != nil {
					t.Errorf("submit: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if v, _ := mustTotal(t, s); v != workers*each*3 {
		t.Fatalf("total = %d want %d", v, workers*each*3)
	}
	evs, _, err := s.History(context.Background(), HistoryOptions{Limit: maxHistoryLimit})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(evs) != workers*each {
		t.Fatalf("events = %d", len(evs))
	}
	for i := 1; i < len(evs); i++ {
		if evs[i].Total != evs[i-1].Total+3 || evs[i].Seq != evs[i-1].Seq+1 {
			t.Fatalf("events out of order at %d: %+v %+v", i, evs[i-1], evs[i])
		}
	}
}

func TestHistoryPaging(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := s.Submit(ctx, "p", uint32(i)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	page, next, err := s.History(ctx, HistoryOptions{Limit: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page) != 2 || page[0].Seq != 1 || next != 3 {
		t.Fatalf("page1 = %+v next=%d", page, next)
	}
	page, _, err = s.History(ctx, HistoryOptions{Limit: 2, Reverse: true})
	if err != nil {
		t.Fatalf("history reverse: %v", err)
	}
	if len(page) != 2 || page[0].Seq != 5 || page[1].Seq != 4 {
		t.Fatalf("reverse page = %+v", page)
	}
	if page[0].Value != 5 || page[0].Total != 15 {
		t.Fatalf("latest event = %+v", page[0])
	}
}

func TestHistoryPagesVisitEveryEvent(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := s.Submit(ctx, "p", 1); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	for _, reverse := range []bool{false, true} {
		var got []uint64
		var from uint64
		for pages := 0; pages < 10; pages++ {
			page, next, err := s.History(ctx, HistoryOptions{From: from, Limit: 2, Reverse: reverse})
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			for _, ev := range page {
				got = append(got, ev.Seq)
			}
			if next == 0 {
				break
			}
			from = next
		}
		want := []uint64{1, 2, 3, 4, 5}
		if reverse {
			want = []uint64{5, 4, 3, 2, 1}
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("reverse=%v: got %v want %v", reverse, got, want)
		}
	}
}

func TestCurrentAndEventLookup(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cur, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Initialized || cur.Seq != 0 {
		t.Fatalf("fresh current = %+v", cur)
	}
	for _, v := range []uint32{7, 8} {
		if _, err := s.Submit(ctx, "q", v); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	cur, err = s.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !cur.Initialized || cur.Total != 15 || cur.Seq != 2 {
		t.Fatalf("current = %+v", cur)
	}

	ev, err := s.Event(ctx, 1)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Seq != 1 || ev.Value != 7 || ev.Total != 7 || ev.Submitter != "q" {
		t.Fatalf("event = %+v", ev)
	}
	if _, err := s.Event(ctx, 3); !errors.Is(err, eventlog.ErrNotFound) {
		t.Fatalf("missing event: %v", err)
	}
	if _, err := s.Event(ctx, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero seq: %v", err)
	}
}

func TestWatchDeliversLiveEvents(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Submit(ctx, "early", 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got := make(chan Event, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, WatchOptions{From: "earliest", Filter: "total >= 3"}, WatchSinkFunc(func(ev Event) error {
			got <- ev
			return nil
		}))
	}()

	for _, v := range []uint32{1, 2, 4} {
		if _, err := s.Submit(ctx, "live", v); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	want := []uint32{4, 8}
	for _, w := range want {
		select {
		case ev := <-got:
			if ev.Total != w {
				t.Fatalf("watched total = %d want %d", ev.Total, w)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for total %d", w)
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("watch returned %v", err)
	}
}

func TestWatchFromSeq(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Submit(ctx, "old", 9); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := make(chan Event, 1)
	go func() {
		_ = s.Watch(ctx, WatchOptions{From: "2"}, WatchSinkFunc(func(ev Event) error {
			got <- ev
			return nil
		}))
	}()
	if _, err := s.Submit(ctx, "new", 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case ev := <-got:
		if ev.Seq != 2 || ev.Submitter != "new" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("timed out")
	}
}

func TestWatchRejectsBadOptions(t *testing.T) {
	s, _ := newTestService(t)
	sink := WatchSinkFunc(func(Event) error { return nil })
	tests := []WatchOptions{
		{Filter: "total >"},
		{Filter: "total + 1"},
		{Filter: "unknown == 1"},
		{From: "yesterday"},
		{From: "0"},
	}
	for _, opts := range tests {
		if err := s.Watch(context.Background(), opts, sink); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%+v: want ErrInvalidArgument, got %v", opts, err)
		}
	}
	if err := ValidateFilter("submitter == 'alice' && value > 1"); err != nil {
		t.Fatalf("valid filter rejected: %v", err)
	}
}

func TestWatchStopsOnSinkError(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	if _, err := s.Submit(ctx, "a", 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	boom := errors.New("client gone")
	err := s.Watch(ctx, WatchOptions{From: "earliest"}, WatchSinkFunc(func(Event) error { return boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("want sink error, got %v", err)
	}
}
