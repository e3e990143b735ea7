package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rzbill/tally/internal/accumulator"
	"github.com/rzbill/tally/internal/auth"
	"github.com/rzbill/tally/internal/eventlog"
	"github.com/rzbill/tally/internal/ratelimit"
	totalsvc "github.com/rzbill/tally/internal/services/totals"
	logpkg "github.com/rzbill/tally/pkg/log"
)

// TotalsController exposes the running total over JSON and SSE.
type TotalsController struct {
	svc      *totalsvc.Service
	verifier auth.Verifier
	limiter  *ratelimit.Limiter
	logger   logpkg.Logger
}

// NewTotalsController creates a totals controller. Submissions are
// authenticated with verifier and throttled per identity by limiter, which
// may be nil.
func NewTotalsController(svc *totalsvc.Service, verifier auth.Verifier, limiter *ratelimit.Limiter, logger logpkg.Logger) *TotalsController {
	return &TotalsController{svc: svc, verifier: verifier, limiter: limiter, logger: logger}
}

// RegisterRoutes registers the /v1/totals endpoints.
func (c *TotalsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/totals/submit", Authenticated(c.verifier, c.handleSubmit))
	mux.HandleFunc("/v1/totals/current", c.handleCurrent)
	mux.HandleFunc("/v1/totals/events", c.handleEvents)
	mux.HandleFunc("/v1/totals/events/", c.handleEvent)
	mux.HandleFunc("/v1/totals/watch", c.handleWatch)
}

// Authenticated resolves the bearer token to an identity and stores it on the
// request context. Rejected requests get 401.
func Authenticated(v auth.Verifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := v.Verify(r.Context(), auth.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="tally"`)
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthenticated")
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

// handleSubmit adds {"value": n} to the total.
func (c *TotalsController) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthenticated")
		return
	}
	var req submitReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if len(req.Value) == 0 || string(req.Value) == "null" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "value is required")
		return
	}
	// Only a bare JSON number is accepted; ParseUint rejects quotes, signs,
	// fractions and exponents.
	v, err := strconv.ParseUint(string(req.Value), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "value must be an unsigned 32-bit integer")
		return
	}
	if !c.limiter.Allow(id.String(), time.Now()) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limited")
		return
	}

	ev, err := c.svc.Submit(r.Context(), id, uint32(v))
	if err != nil {
		c.writeSubmitError(w, err)
		return
	}
	writeJSON(w, submitResp{Total: ev.Total, Submitter: ev.Submitter, Value: ev.Value, Seq: ev.Seq})
}

func (c *TotalsController) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accumulator.ErrValueTooLarge):
		writeError(w, http.StatusUnprocessableEntity, codeValueTooLarge, err.Error())
	case errors.Is(err, accumulator.ErrOverflow):
		writeError(w, http.StatusConflict, codeOverflow, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthenticated")
	default:
		c.logger.Error("submit failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to submit")
	}
}

// handleCurrent returns the committed total.
func (c *TotalsController) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	cur, err := c.svc.Current(r.Context())
	if err != nil {
		c.logger.Error("read total failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to read total")
		return
	}
	writeJSON(w, currentResp{Initialized: cur.Initialized, Total: cur.Total, MaxValue: c.svc.MaxValue(), Seq: cur.Seq})
}

// handleEvent returns the single event at /v1/totals/events/{seq}.
func (c *TotalsController) handleEvent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	seq, err := strconv.ParseUint(strings.TrimPrefix(r.URL.Path, "/v1/totals/events/"), 10, 64)
	if err != nil || seq == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "seq must be a positive integer")
		return
	}
	ev, err := c.svc.Event(r.Context(), seq)
	switch {
	case errors.Is(err, eventlog.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "event not found")
	case err != nil:
		c.logger.Error("read event failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to read event")
	default:
		writeJSON(w, ev)
	}
}

// handleEvents returns a page of committed events.
//
// Query: from (seq), limit, reverse.
func (c *TotalsController) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	from, err := parseSeq(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "from must be a sequence number")
		return
	}
	events, next, err := c.svc.History(r.Context(), totalsvc.HistoryOptions{
		From:    from,
		Limit:   parseLimit(q.Get("limit")),
		Reverse: parseBool(q.Get("reverse")),
	})
	if err != nil {
		c.logger.Error("read history failed", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to read events")
		return
	}
	if events == nil {
		events = []totalsvc.Event{}
	}
	writeJSON(w, eventsResp{Events: events, Next: next})
}

// handleWatch streams committed events as SSE until the client disconnects.
//
// Query: from (latest|earliest|seq), filter (CEL).
func (c *TotalsController) handleWatch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	opts := totalsvc.WatchOptions{From: q.Get("from"), Filter: q.Get("filter")}
	if err := totalsvc.ValidateFilter(opts.Filter); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if from := opts.From; from != "" && from != "latest" && from != "earliest" {
		if seq, err := strconv.ParseUint(from, 10, 64); err != nil || seq == 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "from must be latest, earliest or a positive seq")
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sink := sseSink{w: w}
	sink.Flush()

	err := c.svc.Watch(r.Context(), opts, sink)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("watch ended", logpkg.Err(err))
	}
}
