package transports

import "context"

// Event is a committed submission as printed by the CLI.
type Event struct {
	Seq       uint64 `json:"seq"`
	Total     uint32 `json:"total"`
	Submitter string `json:"submitter"`
	Value     uint32 `json:"value"`
	AtMs      int64  `json:"at_ms"`
}

// Total is the running total as printed by the CLI.
type Total struct {
	Initialized bool   `json:"initialized"`
	Total       uint32 `json:"total"`
	MaxValue    uint32 `json:"max_value"`
}

// WatchRequest selects where a watch starts and which events it shows.
type WatchRequest struct {
	From   string
	Filter string
	// Limit stops the watch after that many events. 0 means no limit.
	Limit int
}

// TotalsTransport abstracts the transport used by the CLI.
type TotalsTransport interface {
	Submit(ctx context.Context, value uint32) (Event, error)
	Total(ctx context.Context) (Total, error)
	Watch(ctx context.Context, req WatchRequest, onEvent func(Event) error) error
}
