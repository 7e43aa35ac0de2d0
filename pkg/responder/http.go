package responder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/bft-labs/assetcdn/internal/httperr"
	"github.com/bft-labs/assetcdn/pkg/log"
)

const copyBufferSize = 64 << 10

var copyBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, copyBufferSize)
		return &b
	},
}

// ServeHTTP serves GET and HEAD requests whose URL path names an asset.
func (r *Responder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		httperr.Write(w, req, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, err := r.Serve(req.Context(), Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Header: req.Header,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.logger.Error("asset read failed",
			log.String("path", req.URL.Path),
			log.Err(err),
		)
		httperr.Write(w, req, http.StatusInternalServerError, "internal server error")
		return
	}

	r.Write(w, req, resp)
}

// Write sends resp on w and closes its body.
func (r *Responder) Write(w http.ResponseWriter, req *http.Request, resp *Response) {
	h := w.Header()
	for k, v := range resp.Header {
		h[k] = v
	}

	if resp.Body == nil {
		if resp.Status == http.StatusNotFound {
			httperr.WriteEmpty(w, resp.Status)
			return
		}
		w.WriteHeader(resp.Status)
		return
	}
	defer resp.Body.Close()

	w.WriteHeader(resp.Status)

	bufp := copyBuffers.Get().(*[]byte)
	defer copyBuffers.Put(bufp)

	n, err := io.CopyBuffer(w, resp.Body, *bufp)
	if err != nil {
		if req.Context().Err() != nil {
			r.logger.Debug("client disconnected during stream",
				log.String("path", resp.Asset.Path),
				log.Int64("sent", n),
				log.Int64("want", resp.Range.Length),
			)
			return
		}
		r.logger.Warn("asset stream interrupted",
			log.String("path", resp.Asset.Path),
			log.Int64("sent", n),
			log.Int64("want", resp.Range.Length),
			log.Err(err),
		)
	}
}
