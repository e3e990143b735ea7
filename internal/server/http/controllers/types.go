package controllers

import (
	"encoding/json"

	totalsvc "github.com/rzbill/tally/internal/services/totals"
)

// errorResp is the body of every non-2xx JSON response.
type errorResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// submitReq carries the amount to add. Value is kept raw so strings,
// negative, fractional and out-of-range inputs can be rejected explicitly.
type submitReq struct {
	Value json.RawMessage `json:"value"`
}

// submitResp reports the committed submission.
type submitResp struct {
	Total     uint32 `json:"total"`
	Submitter string `json:"submitter"`
	Value     uint32 `json:"value"`
	Seq       uint64 `json:"seq"`
}

// currentResp reports the running total. Total is 0 while uninitialized.
type currentResp struct {
	Initialized bool   `json:"initialized"`
	Total       uint32 `json:"total"`
	MaxValue    uint32 `json:"max_value"`
	Seq         uint64 `json:"seq"`
}

// eventsResp is a page of history. Next is 0 when there are no more events.
type eventsResp struct {
	Events []totalsvc.Event `json:"events"`
	Next   uint64           `json:"next"`
}
