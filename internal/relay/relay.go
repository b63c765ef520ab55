package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/config"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrNotConfigured is returned when no relay, or no credential, is set
	// up for a form type.
	ErrNotConfigured = errors.New("relay: not configured")
	// ErrRejected wraps an upstream refusal.
	ErrRejected = errors.New("relay: rejected by upstream")
)

// Result is an accepted delivery.
type Result struct {
	Provider string
	Message  string
}

// Relay forwards a validated submission.
type Relay interface {
	Send(ctx context.Context, sub Submission) (Result, error)
}

// RejectedError carries the upstream's explanation.
type RejectedError struct {
	Provider string
	Message  string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay: %s rejected submission", e.Provider)
	}
	return fmt.Sprintf("relay: %s rejected submission: %s", e.Provider, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Router sends each form type through its own relay.
type Router struct {
	relays map[FormType]Relay
	logger *zap.Logger
}

// NewRouter builds a router from explicit relays.
func NewRouter(relays map[FormType]Relay, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	copied := make(map[FormType]Relay, len(relays))
	for ft, r := range relays {
		if r != nil {
			copied[ft] = r
		}
	}
	return &Router{relays: copied, logger: logger}
}

// FromConfig wires the configured provider for each form type.
func FromConfig(cfg config.RelayConfig, logger *zap.Logger) (*Router, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if client.Timeout <= 0 {
		client.Timeout = defaultTimeout
	}
	build := func(provider string) (Relay, error) {
		switch provider {
		case "":
			return nil, nil
		case config.RelaySMTP:
			return NewSMTPRelay(cfg.SMTP), nil
		case config.RelayWeb3Forms:
			return NewWeb3FormsRelay(cfg.Web3Forms, client), nil
		case config.RelayAppsScript:
			return NewAppsScriptRelay(cfg.AppsScript, client), nil
		}
		return nil, fmt.Errorf("relay: unknown provider %q", provider)
	}
	contact, err := build(cfg.Contact)
	if err != nil {
		return nil, err
	}
	appointment, err := build(cfg.Appointment)
	if err != nil {
		return nil, err
	}
	return NewRouter(map[FormType]Relay{
		FormContact:     contact,
		FormAppointment: appointment,
	}, logger), nil
}

// Send validates, sanitizes and forwards sub. Validation failures come back
// as *ValidationError without contacting any upstream.
func (r *Router) Send(ctx context.Context, sub Submission) (Result, error) {
	if err := sub.Validate(); err != nil {
		return Result{}, err
	}
	relay, ok := r.relays[sub.FormType]
	if !ok {
		r.logger.Error("no relay for form type", zap.String("form_type", string(sub.FormType)))
		return Result{}, fmt.Errorf("%w: form type %q", ErrNotConfigured, sub.FormType)
	}

	start := time.Now()
	res, err := relay.Send(ctx, sub.Sanitized())
	fields := []zap.Field{
		zap.String("form_type", string(sub.FormType)),
		zap.String("provider", res.Provider),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		r.logger.Error("relay submission", append(fields, zap.Error(err))...)
		return Result{}, err
	}
	r.logger.Info("submission relayed", fields...)
	return res, nil
}

func drainError(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 2048))
	return strings.TrimSpace(string(data))
}
