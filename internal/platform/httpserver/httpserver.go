package httpserver

import (
	"net/http"
	"time"
)

// Timeouts sized around the router's 30 second request deadline: writes
// get headroom past it so timeout responses still reach the client.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = time.Minute
)

// New builds an HTTP server with this project's timeout policy applied.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
