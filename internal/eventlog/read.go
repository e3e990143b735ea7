package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
)

// Token encodes a read position as seq (8 bytes big-endian).
type Token [8]byte

// TokenFromSeq builds a Token positioned at seq.
func TokenFromSeq(seq uint64) Token { var t Token; binary.BigEndian.PutUint64(t[:], seq); return t }

func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

// IsZero reports whether the token has no position.
func (t Token) IsZero() bool { return t == Token{} }

type ReadOptions struct {
	Start   Token // if zero, begin from the first (or, reversed, the last) entry
	Limit   int
	Reverse bool
}

type Item struct {
	Seq     uint64
	Header  []byte
	Payload []byte
}

// Read returns up to Limit items starting at Start (inclusive in both
// directions) and the token of the next unread entry, zero when the scan
// reached the end. Passing that token back as Start resumes without gaps.
// Corrupt entries fail the read.
func (l *Log) Read(opts ReadOptions) ([]Item, Token, error) {
	return l.ReadAt(l.db, opts)
}

// ReadAt is Read against r, typically a snapshot shared with other reads.
func (l *Log) ReadAt(r pebblestore.Reader, opts ReadOptions) ([]Item, Token, error) {
	var next Token
	startSeq := opts.Start.Seq()
	low := KeyLogEntry(l.namespace, l.topic, l.part, 0)
	hi := KeyLogEntry(l.namespace, l.topic, l.part, ^uint64(0))
	seqOff := len(low) - 8

	iter, err := r.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, next, err
	}
	defer iter.Close()

	var valid bool
	switch {
	case opts.Reverse && (startSeq == 0 || startSeq == ^uint64(0)):
		valid = iter.Last()
	case opts.Reverse:
		valid = iter.SeekLT(KeyLogEntry(l.namespace, l.topic, l.part, startSeq+1))
	case startSeq == 0:
		valid = iter.First()
	default:
		valid = iter.SeekGE(KeyLogEntry(l.namespace, l.topic, l.part, startSeq))
	}

	items := make([]Item, 0, max(1, opts.Limit))
	for ; valid && (opts.Limit <= 0 || len(items) < opts.Limit); valid = step(iter, opts.Reverse) {
		seq := binary.BigEndian.Uint64(iter.Key()[seqOff:])
		dec, err := DecodeRecord(iter.Value())
		if err != nil {
			return nil, next, fmt.Errorf("seq %d: %w", seq, err)
		}
		items = append(items, Item{Seq: seq, Header: dec.Header, Payload: dec.Payload})
	}
	if err := iter.Error(); err != nil {
		return nil, next, err
	}
	if valid {
		copy(next[:], iter.Key()[seqOff:])
	}
	return items, next, nil
}

func step(iter *pebble.Iterator, reverse bool) bool {
	if reverse {
		return iter.Prev()
	}
	return iter.Next()
}

// Get returns the entry at seq, or ErrNotFound.
func (l *Log) Get(seq uint64) (Item, error) {
	return l.GetAt(l.db, seq)
}

// GetAt is Get against r.
func (l *Log) GetAt(r pebblestore.Reader, seq uint64) (Item, error) {
	v, err := r.Get(KeyLogEntry(l.namespace, l.topic, l.part, seq))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	dec, err := DecodeRecord(v)
	if err != nil {
		return Item{}, err
	}
	return Item{Seq: seq, Header: dec.Header, Payload: dec.Payload}, nil
}
