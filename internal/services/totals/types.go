package totalsvc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rzbill/tally/internal/eventlog"
)

// Event is a committed submission as seen by readers of the log.
type Event struct {
	Seq       uint64 `json:"seq"`
	Total     uint32 `json:"total"`
	Submitter string `json:"submitter"`
	Value     uint32 `json:"value"`
	AtMs      int64  `json:"at_ms"`
}

// payload is the JSON body stored per log entry; Seq comes from the key.
type payload struct {
	Total     uint32 `json:"total"`
	Submitter string `json:"submitter"`
	Value     uint32 `json:"value"`
}

func encodeEvent(ev Event) eventlog.AppendRecord {
	var hdr [8]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(ev.AtMs))
	// Marshal of a flat struct of strings and ints cannot fail.
	body, _ := json.Marshal(payload{Total: ev.Total, Submitter: ev.Submitter, Value: ev.Value})
	return eventlog.AppendRecord{Header: hdr[:], Payload: body}
}

func decodeEvent(it eventlog.Item) (Event, error) {
	var p payload
	if err := json.Unmarshal(it.Payload, &p); err != nil {
		return Event{}, fmt.Errorf("decode event %d: %w", it.Seq, err)
	}
	ev := Event{Seq: it.Seq, Total: p.Total, Submitter: p.Submitter, Value: p.Value}
	if len(it.Header) >= 8 {
		ev.AtMs = int64(binary.BigEndian.Uint64(it.Header[:8]))
	}
	return ev, nil
}

// Time returns the commit wall clock time.
func (e Event) Time() time.Time { return time.UnixMilli(e.AtMs) }

// HistoryOptions pages through committed events.
type HistoryOptions struct {
	// From is the first seq to return in either direction. Zero starts at
	// the oldest (forward) or newest (reverse) event.
	From    uint64
	Limit   int
	Reverse bool
}

// Current is the committed total together with the seq of the event that
// produced it, read from one snapshot.
type Current struct {
	Total       uint32
	Initialized bool
	Seq         uint64
}

// WatchSink is implemented by transports to receive streamed events.
type WatchSink interface {
	Send(Event) error
}

// WatchSinkFunc adapts a function to WatchSink.
type WatchSinkFunc func(Event) error

func (f WatchSinkFunc) Send(ev Event) error { return f(ev) }

// WatchOptions controls where a watch starts and which events it delivers.
// From is "latest" (default), "earliest" or a decimal sequence number.
// Filter is an optional CEL expression over total, value, submitter, seq,
// ts_ms and now_ms.
type WatchOptions struct {
	From   string
	Filter string
}
