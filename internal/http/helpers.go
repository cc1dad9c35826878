package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"registrydash/internal/billing"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// queryFrom reads ?page= and ?limit= with the given default page size.
func queryFrom(r *http.Request, defLimit int) billing.Query {
	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), defLimit)
	if limit < 1 {
		limit = defLimit
	}
	if limit > billing.MaxLimit {
		limit = billing.MaxLimit
	}
	return billing.Query{Limit: limit, Page: page}
}
