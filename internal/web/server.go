// Package web serves the public site, the admin panel and the form relay API.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/auth"
	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/editor"
	"github.com/khbm0110/JUUUU/internal/i18n"
	appmw "github.com/khbm0110/JUUUU/internal/middleware"
	"github.com/khbm0110/JUUUU/internal/observability"
	"github.com/khbm0110/JUUUU/internal/relay"
	"github.com/khbm0110/JUUUU/internal/router"
)

// Config wires the handler's collaborators.
type Config struct {
	Store          *content.Store
	Sessions       appmw.SessionStore
	Verifier       auth.Verifier
	Workspace      *editor.Workspace
	Relay          relay.Relay
	Bundle         *i18n.Bundle
	Renderer       *Renderer
	DefaultLang    i18n.Language
	AllowedOrigins []string
	RequestTimeout time.Duration
	DevMode        bool
	Logger         *zap.Logger
	// Ready reports storage health for /healthz. Nil means always ready.
	Ready func() error
}

type handlers struct {
	store     *content.Store
	verifier  auth.Verifier
	workspace *editor.Workspace
	relay     relay.Relay
	bundle    *i18n.Bundle
	renderer  *Renderer
	lang      i18n.Language
	ready     func() error
}

// NewHandler builds the full route tree.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Store == nil || cfg.Sessions == nil || cfg.Workspace == nil || cfg.Relay == nil {
		return nil, errors.New("web: store, sessions, workspace and relay are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bundle := cfg.Bundle
	if bundle == nil {
		b, err := i18n.LoadBundle(i18n.Default)
		if err != nil {
			return nil, err
		}
		bundle = b
	}
	renderer := cfg.Renderer
	if renderer == nil {
		rr, err := NewRenderer(nil, bundle, cfg.DevMode)
		if err != nil {
			return nil, err
		}
		renderer = rr
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	lang := i18n.Normalize(string(cfg.DefaultLang), i18n.Default)

	h := &handlers{
		store:     cfg.Store,
		verifier:  cfg.Verifier,
		workspace: cfg.Workspace,
		relay:     cfg.Relay,
		bundle:    bundle,
		renderer:  renderer,
		lang:      lang,
		ready:     cfg.Ready,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.Trace)
	r.Use(observability.InjectLogger(logger))
	r.Use(observability.RequestLogger)
	r.Use(observability.Recovery)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))

	r.Get("/healthz", h.healthz)
	r.Handle("/assets/*", http.StripPrefix("/assets", appmw.AssetsWithCache(StaticFS())))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.MethodNotAllowed(h.apiMethodNotAllowed)
		r.NotFound(h.apiNotFound)
		r.Post("/submit-contact", h.submitAPI(relay.FormContact))
		r.Post("/submit-appointment", h.submitAPI(relay.FormAppointment))
		r.Post("/scrollspy", h.scrollspy)
	})

	r.Group(func(r chi.Router) {
		r.Use(appmw.HTMX())
		r.Use(appmw.Session(cfg.Sessions))
		r.Use(appmw.Locale(lang))

		r.Get("/", h.home)
		r.Post("/contact", h.submitForm(relay.FormContact))
		r.Get("/appointment", h.appointmentPage)
		r.Post("/appointment", h.submitForm(relay.FormAppointment))
		r.NotFound(h.notFound)

		r.Group(func(r chi.Router) {
			r.Use(appmw.CSRF())
			r.Get(router.LoginPath, h.loginForm)
			r.Post(router.LoginPath, h.loginSubmit)
			r.Post("/logout", h.logout)
		})

		r.Route(router.AdminPath, func(r chi.Router) {
			r.Use(appmw.RequireAdmin(router.LoginPath))
			r.Use(appmw.CSRF())
			r.Get("/", h.dashboard)
			r.Get("/*", h.dashboard)
			r.Post("/apply", h.applyEdit)
			r.Post("/publish", h.publish)
			r.Post("/discard", h.discard)
		})
	})

	return r, nil
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.ready != nil {
		if err := h.ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
