package webapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"swipely/internal/api"
	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/miniapp"
	"swipely/internal/payments"
	"swipely/internal/store"
	"swipely/internal/templates"
)

const maxBodyBytes = 1 << 20

// StatusProvider reports daemon state for the admin status route.
type StatusProvider interface {
	Status(ctx context.Context) api.DaemonStatus
}

// Deps are the collaborators of the HTTP API. Payments and Status may be nil.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Catalog   *templates.Catalog
	Carousels *api.CarouselService
	Profiles  *api.ProfileService
	Jobs      *api.JobService
	Sessions  *miniapp.Sessions
	Payments  *payments.Service
	Status    StatusProvider
	Logger    *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	catalog   *templates.Catalog
	carousels *api.CarouselService
	profiles  *api.ProfileService
	jobs      *api.JobService
	sessions  *miniapp.Sessions
	payments  *payments.Service
	status    StatusProvider
	logger    *slog.Logger

	eventInterval time.Duration
	now           func() time.Time
}

// NewServer builds the API server.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		cfg:           deps.Config,
		store:         deps.Store,
		catalog:       deps.Catalog,
		carousels:     deps.Carousels,
		profiles:      deps.Profiles,
		jobs:          deps.Jobs,
		sessions:      deps.Sessions,
		payments:      deps.Payments,
		status:        deps.Status,
		logger:        logging.NewComponentLogger(logger, "webapi"),
		eventInterval: time.Second,
		now:           time.Now,
	}
}

// SetEventInterval changes how often the events socket polls job state.
func (s *Server) SetEventInterval(d time.Duration) {
	if d > 0 {
		s.eventInterval = d
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/telegram", s.handleAuth)
		r.Get("/templates", s.handleTemplates)
		r.Post("/payments/yookassa", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/me", s.handleMe)
			r.Patch("/me", s.handleUpdateMe)

			r.Get("/carousels", s.handleListCarousels)
			r.Post("/carousels", s.handleCreateCarousel)
			r.Get("/carousels/{id}", s.handleGetCarousel)
			r.Put("/carousels/{id}/slides", s.handleEditCarousel)
			r.Get("/carousels/{id}/slides/{n}", s.handleSlideImage)
			r.Get("/carousels/{id}/events", s.handleEvents)
			r.Post("/preview", s.handlePreview)

			r.Get("/presets", s.handleListPresets)
			r.Post("/presets", s.handleCreatePreset)
			r.Put("/presets/{presetID}", s.handleUpdatePreset)
			r.Delete("/presets/{presetID}", s.handleDeletePreset)

			r.Get("/history", s.handleHistory)
			r.Post("/checkout", s.handleCheckout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdminToken)

			r.Get("/status", s.handleAdminStatus)
			r.Get("/stats", s.handleAdminStats)
			r.Get("/jobs", s.handleAdminJobs)
			r.Get("/jobs/{id}", s.handleAdminJob)
			r.Post("/jobs/retry", s.handleAdminRetry)
			r.Delete("/jobs/{id}", s.handleAdminRemove)
			r.Get("/users", s.handleAdminUsers)
			r.Post("/users/{telegramID}/tier", s.handleAdminSetTier)
			r.Post("/users/{telegramID}/reset-usage", s.handleAdminResetUsage)
		})
	})
	return r
}
