// Package api exposes the JSON HTTP interface.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/youowe/internal/action"
	"github.com/mmynk/youowe/internal/metrics"
	"github.com/mmynk/youowe/internal/middleware"
	"github.com/mmynk/youowe/internal/realtime"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the router to its dependencies. Metrics, Limiter and Store
// may be nil.
type Options struct {
	Actions  *action.Actions
	Hub      *realtime.Hub
	Verifier middleware.TokenVerifier
	Metrics  *metrics.Metrics
	Limiter  *middleware.RateLimiter
	Store    Pinger

	CORSOrigin string

	// SessionCookieName names the cookie carrying the access token handed out
	// on sign-up. SessionCookieSecure marks it HTTPS-only.
	SessionCookieName   string
	SessionCookieSecure bool
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	h := &handler{
		actions: opts.Actions,
		hub:     opts.Hub,
		store:   opts.Store,
		cookie:  opts.SessionCookieName,
		secure:  opts.SessionCookieSecure,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(opts.Metrics.Instrument)
	r.Use(middleware.CORS(opts.CORSOrigin))
	r.Use(middleware.OptionalAuth(opts.Verifier, opts.SessionCookieName))
	if opts.Limiter != nil {
		// Keyed by auth user id when present, so it runs after OptionalAuth.
		r.Use(opts.Limiter.Handler)
	}

	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/groups", h.createGroup)
		r.Get("/groups/{id}", h.fetchGroup)
		r.Delete("/groups/{id}", h.deleteGroup)
		r.Post("/groups/{id}/close", h.closeGroup)
		r.Get("/groups/{id}/balances", h.groupBalances)
		r.Get("/groups/{id}/realtime", h.subscribeOrders)

		r.Post("/members", h.createMember)
		r.Post("/members-and-groups", h.createMemberAndGroup)
		r.With(middleware.RequireAuth).Get("/members/me", h.fetchMe)
		r.Get("/members/{id}", h.fetchMember)
		r.Delete("/members/{id}", h.deleteMember)

		r.Post("/members-groups", h.joinGroup)

		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.fetchOrders)
		r.Put("/orders/{id}", h.updateOrder)
		r.Delete("/orders/{id}", h.deleteOrder)
	})

	return r
}
