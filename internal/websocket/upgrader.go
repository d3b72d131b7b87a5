package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://localhost:3000",
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1:3000",
	"http://127.0.0.1",
}

// NewUpgrader builds an upgrader that accepts the default development origins
// plus the configured ones. Requests without an Origin header are non-browser
// clients and are allowed.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(defaultAllowedOrigins)+len(allowedOrigins))
	for _, o := range defaultAllowedOrigins {
		allowed[o] = struct{}{}
	}
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = struct{}{}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			return isLoopbackOrigin(origin)
		},
	}
}

// isLoopbackOrigin accepts any port on a loopback host, for local development.
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
