package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/khbm0110/JUUUU/internal/config"
)

const appsScriptProvider = "appsscript"

// AppsScriptRelay posts form-encoded submissions to a Google Apps Script web
// app, which answers {"status":"success"} on acceptance.
type AppsScriptRelay struct {
	url  string
	http *http.Client
}

// NewAppsScriptRelay builds the relay. A nil client uses a default timeout.
func NewAppsScriptRelay(cfg config.AppsScriptConfig, client *http.Client) *AppsScriptRelay {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &AppsScriptRelay{url: strings.TrimSpace(cfg.URL), http: client}
}

type appsScriptResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Send implements Relay.
func (r *AppsScriptRelay) Send(ctx context.Context, sub Submission) (Result, error) {
	if r.url == "" {
		return Result{Provider: appsScriptProvider}, fmt.Errorf("%w: apps script url", ErrNotConfigured)
	}
	form := url.Values{}
	form.Set("formType", string(sub.FormType))
	form.Set("name", sub.Name)
	form.Set("email", sub.Email)
	form.Set("phone", sub.Phone)
	form.Set("message", sub.Message)
	if sub.PreferredDateTime != "" {
		form.Set("preferred", sub.PreferredDateTime)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return Result{Provider: appsScriptProvider}, fmt.Errorf("relay: apps script: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Result{Provider: appsScriptProvider}, fmt.Errorf("relay: apps script status %d: %s", resp.StatusCode, drainError(resp.Body))
	}

	var out appsScriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Provider: appsScriptProvider}, fmt.Errorf("relay: apps script: decode: %w", err)
	}
	if out.Status != "success" {
		return Result{Provider: appsScriptProvider}, &RejectedError{Provider: appsScriptProvider, Message: out.Message}
	}
	return Result{Provider: appsScriptProvider, Message: out.Message}, nil
}
