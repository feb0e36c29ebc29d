package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the verification API. Write timeout leaves
// room for an upload that waits on OCR plus registry lookups.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
