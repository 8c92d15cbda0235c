package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware guards the staff endpoints. Nil rejects every staff request.
	AuthMiddleware func(http.Handler) http.Handler
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  *zap.Logger
}

// NewRouter constructs the API router with staff endpoints closed.
func NewRouter(api *Server) http.Handler {
	return NewRouterWithOptions(api, RouterOptions{})
}

// NewRouterWithOptions constructs the API HTTP router.
//
// Kiosk check-in and the public waitlist form are unauthenticated; everything else is
// behind opts.AuthMiddleware.
func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// Public.
	r.Post("/checkins/self", api.SelfCheckIn)
	r.Post("/waitlist", api.JoinWaitlist)

	// Staff.
	auth := opts.AuthMiddleware
	if auth == nil {
		auth = denyAll
	}
	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/checkins/assisted", api.AssistedCheckIn)
		r.Get("/checkins", api.ListDailyCheckIns)
		r.Get("/standing", api.GetStanding)

		r.Post("/members", api.RegisterMember)
		r.Route("/members/{memberId}", func(r chi.Router) {
			r.Get("/", api.GetMember)
			r.Patch("/", api.UpdateMember)
			r.Get("/checkins", api.ListMemberCheckIns)
			r.Post("/payments", api.RecordPayment)
			r.Delete("/payments/current", api.MarkUnpaid)
		})

		r.Get("/waitlist", api.ListWaitlist)
		r.Route("/waitlist/{entryId}", func(r chi.Router) {
			r.Get("/", api.GetWaitlistEntry)
			r.Delete("/", api.RemoveWaitlistEntry)
			r.Post("/promote", api.PromoteWaitlistEntry)
		})
	})
	return r
}
