package testutil

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/khbm0110/JUUUU/internal/auth"
	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/editor"
	"github.com/khbm0110/JUUUU/internal/session"
	"github.com/khbm0110/JUUUU/internal/storage"
	"github.com/khbm0110/JUUUU/internal/web"
)

// Admin credentials accepted by servers built with NewServer.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "correct horse battery staple"
)

// Server bundles the running test server with the collaborators tests
// inspect.
type Server struct {
	*httptest.Server
	Store     *content.Store
	Backend   *storage.Memory
	Workspace *editor.Workspace
	Relay     *StubRelay
}

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*web.Config)

// WithRelay overrides the form relay.
func WithRelay(r *StubRelay) ServerOption {
	return func(cfg *web.Config) {
		cfg.Relay = r
	}
}

// WithReady installs a readiness probe for /healthz.
func WithReady(fn func() error) ServerOption {
	return func(cfg *web.Config) {
		cfg.Ready = fn
	}
}

// NewServer constructs an httptest server running the full site stack on an
// in-memory backend.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	backend := storage.NewMemory()
	store, err := content.NewStore(backend, nil)
	if err != nil {
		t.Fatalf("content store: %v", err)
	}
	store.Load(context.Background())

	hash, err := auth.HashPassword(AdminPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	verifier, err := auth.NewBcryptVerifier(AdminEmail, hash)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	sessions, err := session.NewManager(session.Config{
		HashKey:  []byte("0123456789abcdef0123456789abcdef"),
		BlockKey: []byte("abcdef0123456789"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	workspace := editor.NewWorkspace(store)
	stub := &StubRelay{}

	cfg := web.Config{
		Store:     store,
		Sessions:  sessions,
		Verifier:  verifier,
		Workspace: workspace,
		Relay:     stub,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if sr, ok := cfg.Relay.(*StubRelay); ok {
		stub = sr
	}

	handler, err := web.NewHandler(cfg)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Server{
		Server:    srv,
		Store:     store,
		Backend:   backend,
		Workspace: workspace,
		Relay:     stub,
	}
}

// Client returns a cookie-keeping client that does not follow redirects.
func (s *Server) Client(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
