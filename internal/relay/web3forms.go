package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/khbm0110/JUUUU/internal/config"
)

const web3FormsProvider = "web3forms"

// Web3FormsRelay posts submissions as JSON to the Web3Forms API.
type Web3FormsRelay struct {
	endpoint  string
	accessKey string
	http      *http.Client
}

// NewWeb3FormsRelay builds the relay. A nil client uses a default timeout.
func NewWeb3FormsRelay(cfg config.Web3FormsConfig, client *http.Client) *Web3FormsRelay {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Web3FormsRelay{
		endpoint:  strings.TrimSpace(cfg.Endpoint),
		accessKey: strings.TrimSpace(cfg.AccessKey),
		http:      client,
	}
}

type web3FormsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Send implements Relay.
func (r *Web3FormsRelay) Send(ctx context.Context, sub Submission) (Result, error) {
	if r.accessKey == "" || r.endpoint == "" {
		return Result{Provider: web3FormsProvider}, fmt.Errorf("%w: web3forms access key", ErrNotConfigured)
	}
	body := map[string]string{
		"access_key": r.accessKey,
		"formType":   string(sub.FormType),
		"subject":    subjectFor(sub.FormType),
		"name":       sub.Name,
		"email":      sub.Email,
	}
	if sub.Phone != "" {
		body["phone"] = sub.Phone
	}
	if sub.Message != "" {
		body["message"] = sub.Message
	}
	if sub.PreferredDateTime != "" {
		body["preferred"] = sub.PreferredDateTime
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return Result{Provider: web3FormsProvider}, fmt.Errorf("relay: web3forms: %w", err)
	}
	defer resp.Body.Close()

	var out web3FormsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Provider: web3FormsProvider}, fmt.Errorf("relay: web3forms status %d: decode: %w", resp.StatusCode, err)
	}
	if !out.Success {
		return Result{Provider: web3FormsProvider}, &RejectedError{Provider: web3FormsProvider, Message: out.Message}
	}
	return Result{Provider: web3FormsProvider, Message: out.Message}, nil
}
