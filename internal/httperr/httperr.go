// Package httperr writes the structured error payloads returned by every
// assetcdn route.
package httperr

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Body is the JSON payload of an error response.
type Body struct {
	Error string `json:"error"`
}

// Write sends status with a JSON error body. HEAD requests receive the
// headers only. Any Content-Range/ETag set by the caller is left intact.
func Write(w http.ResponseWriter, r *http.Request, status int, message string) {
	payload, _ := json.Marshal(Body{Error: message})

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(payload)))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if r != nil && r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(payload)
}

// WriteEmpty sends status with no body and no Content-Type, as required for
// 304, 416 and 404 responses of the asset routes.
func WriteEmpty(w http.ResponseWriter, status int) {
	w.Header().Del("Content-Type")
	if status != http.StatusNotModified {
		w.Header().Set("Content-Length", "0")
	}
	w.WriteHeader(status)
}
