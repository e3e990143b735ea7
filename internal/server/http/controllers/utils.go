package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Error codes carried in the "code" field of error bodies.
const (
	codeBadRequest      = "bad_request"
	codeUnauthenticated = "unauthenticated"
	codeRateLimited     = "rate_limited"
	codeValueTooLarge   = "value_too_large"
	codeOverflow        = "overflow"
	codeNotFound        = "not_found"
	codeInternal        = "internal"
	codeNotServing      = "not_serving"
)

// writeError writes {"error": message, "code": code} with the given status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResp{Error: message, Code: code})
}

// writeJSON writes a 200 JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// parseLimit returns 0 for empty or invalid values.
func parseLimit(s string) int {
	if s == "" {
		return 0
	}
	if limit, err := strconv.Atoi(s); err == nil && limit > 0 {
		return limit
	}
	return 0
}

// parseSeq parses an optional sequence number; empty means 0.
func parseSeq(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// parseBool returns true for "true" or "1".
func parseBool(s string) bool {
	return s == "true" || s == "1"
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	return false
}
