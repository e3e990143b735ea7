package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
)

func openTestDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func newTestLog(t *testing.T) (*Log, *pebblestore.DB) {
	t.Helper()
	db := openTestDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "ns", "t", 1)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l, db
}

func TestAppendAssignsSequential(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()
	seqs, err := l.Append(ctx, []AppendRecord{{Header: []byte("h1"), Payload: []byte("p1")}, {Header: []byte("h2"), Payload: []byte("p2")}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("want seqs [1 2], got %v", seqs)
	}
	if l.LastSeq() != 2 {
		t.Fatalf("last seq = %d", l.LastSeq())
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir)
	l, err := OpenLog(db, "ns", "t", 1)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	ctx := context.Background()
	seqs, err := l.Append(ctx, []AppendRecord{{Payload: []byte("x")}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2 := openTestDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := OpenLog(db2, "ns", "t", 1)
	if err != nil {
		t.Fatalf("open log2: %v", err)
	}
	seqs2, err := l2.Append(ctx, []AppendRecord{{Payload: []byte("y")}})
	if err != nil {
		t.Fatalf("append2: %v", err)
	}
	if seqs2[0] != seqs[0]+1 {
		t.Fatalf("expected next seq after reopen: prev=%d next=%d", seqs[0], seqs2[0])
	}
}

func TestAppendWithCommitsStagedKeys(t *testing.T) {
	l, db := newTestLog(t)
	key := []byte("ns/ns/total/main")
	seqs, err := l.AppendWith(context.Background(), []AppendRecord{{Payload: []byte("e")}}, func(b *pebble.Batch) error {
		return b.Set(key, []byte{0, 0, 0, 7}, nil)
	})
	if err != nil {
		t.Fatalf("append with: %v", err)
	}
	if len(seqs) != 1 {
		t.Fatalf("want one seq, got %v", seqs)
	}
	v, err := db.Get(key)
	if err != nil || len(v) != 4 || v[3] != 7 {
		t.Fatalf("staged key not committed: %v %v", v, err)
	}
}

func TestAppendWithStageErrorDiscardsBatch(t *testing.T) {
	l, db := newTestLog(t)
	boom := errors.New("stage failed")
	key := []byte("ns/ns/total/main")
	_, err := l.AppendWith(context.Background(), []AppendRecord{{Payload: []byte("e")}}, func(b *pebble.Batch) error {
		if err := b.Set(key, []byte{1}, nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want stage error, got %v", err)
	}
	if l.LastSeq() != 0 {
		t.Fatalf("failed append must not advance seq, got %d", l.LastSeq())
	}
	if _, err := db.Get(key); !errors.Is(err, pebblestore.ErrNotFound) {
		t.Fatalf("staged key must not be visible, got %v", err)
	}
	items, _, err := l.Read(ReadOptions{})
	if err != nil || len(items) != 0 {
		t.Fatalf("no entries expected, got %d (%v)", len(items), err)
	}

	seqs, err := l.Append(context.Background(), []AppendRecord{{Payload: []byte("ok")}})
	if err != nil || seqs[0] != 1 {
		t.Fatalf("next append should reuse seq 1, got %v (%v)", seqs, err)
	}
}

func TestAppendWithCancelledContext(t *testing.T) {
	l, _ := newTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Append(ctx, []AppendRecord{{Payload: []byte("e")}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if l.LastSeq() != 0 {
		t.Fatalf("seq advanced on failed commit")
	}
}
