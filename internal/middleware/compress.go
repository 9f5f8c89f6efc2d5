package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// Compress brotli-encodes responses for clients that accept "br".
// WebSocket upgrades and bodiless statuses pass through untouched.
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") ||
			strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		bw := &brotliWriter{ResponseWriter: w}
		defer bw.close()
		next.ServeHTTP(bw, r)
	})
}

// brotliWriter decides on encoding when the status is known.
type brotliWriter struct {
	http.ResponseWriter
	bw          *brotli.Writer
	wroteHeader bool
}

func (w *brotliWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if status != http.StatusNoContent && status != http.StatusNotModified {
		h := w.ResponseWriter.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "br")
		h.Add("Vary", "Accept-Encoding")
		w.bw = brotli.NewWriter(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *brotliWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.bw == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.bw.Write(b)
}

func (w *brotliWriter) close() {
	if w.bw != nil {
		w.bw.Close()
	}
}
