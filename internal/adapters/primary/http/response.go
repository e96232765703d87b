package http

import (
	"encoding/json"
	"net/http"
)

// ListResponse carries a bounded view list together with its length.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// WriteJSON encodes v as the response body. Computed signal views change
// with every snapshot, so intermediaries must not cache them.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteList writes items as a ListResponse. A nil slice is sent as [].
func WriteList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, ListResponse[T]{Data: items, Count: len(items)})
}
