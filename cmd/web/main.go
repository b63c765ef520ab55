package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/auth"
	"github.com/khbm0110/JUUUU/internal/config"
	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/editor"
	"github.com/khbm0110/JUUUU/internal/i18n"
	"github.com/khbm0110/JUUUU/internal/observability"
	"github.com/khbm0110/JUUUU/internal/relay"
	"github.com/khbm0110/JUUUU/internal/secrets"
	"github.com/khbm0110/JUUUU/internal/session"
	"github.com/khbm0110/JUUUU/internal/storage"
	"github.com/khbm0110/JUUUU/internal/web"
)

const draftSweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", verr.Fields())
		} else {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HasSecretRefs() {
		fetcher := newSecretFetcher(ctx, cfg, logger.Named("secrets"))
		defer fetcher.Close()
		if err := cfg.ResolveSecrets(ctx, fetcher.Resolve); err != nil {
			logger.Fatal("failed to resolve secrets", zap.Error(err))
		}
	}

	backend, err := storage.Open(cfg.Storage, logger.Named("storage"))
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	store, err := content.NewStore(backend, logger.Named("content"))
	if err != nil {
		logger.Fatal("failed to initialise content store", zap.Error(err))
	}
	loadCtx, cancelLoad := context.WithTimeout(ctx, 15*time.Second)
	store.Load(loadCtx)
	cancelLoad()

	if w, ok := backend.(storage.Watcher); ok && cfg.Storage.Watch {
		go func() {
			if err := w.Watch(ctx, store.Refresh); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("storage watch stopped", zap.Error(err))
			}
		}()
	}

	sessions, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      []byte(cfg.Session.HashKey),
		BlockKey:     []byte(cfg.Session.BlockKey),
		CookieSecure: cfg.Session.Secure,
		IdleTimeout:  cfg.Session.IdleTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialise sessions", zap.Error(err))
	}

	verifier, err := auth.NewBcryptVerifier(cfg.Admin.Email, cfg.Admin.PasswordHash)
	if err != nil {
		logger.Fatal("failed to initialise admin verifier", zap.Error(err))
	}

	forms, err := relay.FromConfig(cfg.Relay, logger.Named("relay"))
	if err != nil {
		logger.Fatal("failed to initialise form relay", zap.Error(err))
	}

	workspace := editor.NewWorkspace(store, editor.WithLogger(logger.Named("editor")))
	go sweepDrafts(ctx, workspace)

	handler, err := web.NewHandler(web.Config{
		Store:          store,
		Sessions:       sessions,
		Verifier:       verifier,
		Workspace:      workspace,
		Relay:          forms,
		DefaultLang:    i18n.Language(cfg.Locale.Default),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.WriteTimeout,
		DevMode:        cfg.Server.DevMode,
		Logger:         logger,
		Ready:          readiness(backend),
	})
	if err != nil {
		logger.Fatal("failed to build handler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("site listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("contact_relay", cfg.Relay.Contact),
		zap.String("appointment_relay", cfg.Relay.Appointment),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func newSecretFetcher(ctx context.Context, cfg *config.Config, logger *zap.Logger) *secrets.Fetcher {
	project := cfg.Secrets.ProjectID
	if project == "" {
		project = cfg.Storage.Firestore.ProjectID
	}
	return secrets.NewFetcher(ctx,
		secrets.WithProject(project),
		secrets.WithFallbackFile(cfg.Secrets.FallbackFile),
		secrets.WithLogger(logger),
	)
}

func sweepDrafts(ctx context.Context, workspace *editor.Workspace) {
	ticker := time.NewTicker(draftSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			workspace.Sweep()
		}
	}
}

// readiness reports the backend unavailable when the document cannot be read.
// A missing document is fine; the site serves defaults.
func readiness(repo content.Repository) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := repo.Load(ctx); err != nil && !errors.Is(err, content.ErrNotFound) {
			return err
		}
		return nil
	}
}
