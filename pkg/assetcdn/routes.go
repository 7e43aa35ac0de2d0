package assetcdn

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bft-labs/assetcdn/internal/httperr"
	"github.com/bft-labs/assetcdn/pkg/compress"
	"github.com/bft-labs/assetcdn/pkg/ratelimit"
)

// chain applies middleware so that mw[0] runs first.
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

func (s *Server) routes() http.Handler {
	keyFunc := ratelimit.FingerprintFunc(s.config.TrustProxy)
	assetAdmission := ratelimit.Middleware(s.assetLimit, keyFunc, s.logger)
	apiAdmission := ratelimit.Middleware(s.apiLimit, keyFunc, s.logger)
	compression := compress.Middleware(compress.Options{MinSize: s.config.CompressMinSize, Logger: s.logger})

	mux := http.NewServeMux()

	assets := chain(s.responder, assetAdmission)
	for _, c := range s.config.Categories {
		mux.Handle("/"+c+"/", assets)
	}

	mux.Handle("POST /api/assets/{category}",
		chain(http.HandlerFunc(s.handleUpload), s.requireToken, apiAdmission, compression))
	mux.Handle("GET /api/assets/{category}",
		chain(http.HandlerFunc(s.handleList), apiAdmission, compression))
	mux.Handle("GET /healthz",
		chain(http.HandlerFunc(s.handleHealth), assetAdmission))

	mux.Handle("/", chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, r, http.StatusNotFound, "not found")
	}), assetAdmission))

	return s.logRequests(mux)
}

// requireToken rejects requests without the configured bearer token.
// It is a no-op when no token is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	if s.config.AuthToken == "" {
		return next
	}
	want := "Bearer " + s.config.AuthToken
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !constantTimeEqual(r.Header.Get("Authorization"), want) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="assetcdn"`)
			httperr.Write(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status string    `json:"status"`
	State  string    `json:"state"`
	Since  time.Time `json:"since"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.lifecycle.State()
	status := http.StatusOK
	body := healthResponse{Status: "ok", State: state.String(), Since: s.lifecycle.Since()}
	if state != StateRunning {
		status = http.StatusServiceUnavailable
		body.Status = "unavailable"
	}
	writeJSON(w, r, status, body)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		httperr.Write(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(payload)
	}
}
