package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
)

// AppendRecord represents a single appendable event.
type AppendRecord struct {
	Header  []byte
	Payload []byte
}

// StageFunc adds extra mutations to the batch that carries appended entries.
type StageFunc func(b *pebble.Batch) error

// Log provides append-only operations for a namespace/topic/partition.
type Log struct {
	db        *pebblestore.DB
	namespace string
	topic     string
	part      uint32

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// OpenLog initializes a Log and loads the last sequence from metadata (if any).
func OpenLog(db *pebblestore.DB, namespace, topic string, partition uint32) (*Log, error) {
	l := &Log{db: db, namespace: namespace, topic: topic, part: partition, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyLogMeta(namespace, topic, partition))
	switch {
	case err == nil && len(meta) >= 8:
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err == nil:
		return nil, fmt.Errorf("eventlog %s/%s/%d: %w", namespace, topic, partition, ErrCorruptRecord)
	case !errors.Is(err, pebblestore.ErrNotFound):
		return nil, fmt.Errorf("load eventlog meta: %w", err)
	}
	return l, nil
}

// Append appends the provided records as a single atomic batch. Returns assigned seq numbers.
func (l *Log) Append(ctx context.Context, recs []AppendRecord) ([]uint64, error) {
	return l.AppendWith(ctx, recs, nil)
}

// AppendWith appends recs and applies stage to the same batch, so the entries
// and the staged keys become visible together or not at all.
func (l *Log) AppendWith(ctx context.Context, recs []AppendRecord, stage StageFunc) ([]uint64, error) {
	if len(recs) == 0 && stage == nil {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	next := l.lastSeq
	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		next++
		if err := b.Set(KeyLogEntry(l.namespace, l.topic, l.part, next), EncodeRecord(r.Header, r.Payload), nil); err != nil {
			return nil, err
		}
		seqs[i] = next
	}
	if len(recs) > 0 {
		var meta [8]byte
		binary.BigEndian.PutUint64(meta[:], next)
		if err := b.Set(KeyLogMeta(l.namespace, l.topic, l.part), meta[:], nil); err != nil {
			return nil, err
		}
	}
	if stage != nil {
		if err := stage(b); err != nil {
			return nil, err
		}
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		l.lastSeq = next
		close(l.notifyCh)
		l.notifyCh = make(chan struct{})
	}
	return seqs, nil
}

// LastSeq returns the sequence of the newest committed entry, 0 when empty.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// ErrNotFound is returned when a sequence has no entry.
var ErrNotFound = errors.New("event not found")
