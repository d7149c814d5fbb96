package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// WriteJSON writes v with the given status. Used where no request is at hand
// (error envelopes written from middleware).
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Render writes a success payload through go-chi/render.
func Render(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// DecodeJSON reads at most maxBytes of the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return render.DecodeJSON(r.Body, dst)
}
