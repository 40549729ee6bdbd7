package api

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/mcblakeb/retro-relay/ratelimit"
)

type Middleware struct {
	cors   *cors.Cors
	rlimit *ratelimit.Limiter
}

func NewMiddleware(origins []string, limit int, window time.Duration) *Middleware {
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}),
		rlimit: ratelimit.New(limit, window),
	}
}

// Wrap applies CORS and per-IP rate limiting to the API routes.
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return m.cors.Handler(m.rlimit.Middleware(h))
}
