package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/httpx"
	"github.com/khbm0110/JUUUU/internal/i18n"
	"github.com/khbm0110/JUUUU/internal/relay"
	"github.com/khbm0110/JUUUU/internal/requestctx"
	"github.com/khbm0110/JUUUU/internal/scrollspy"
)

const (
	msgSent          = "Message sent successfully!"
	msgFailed        = "Failed to send message."
	msgNotConfigured = "Le serveur de messagerie n'est pas configuré."
)

// submitAPI handles the JSON relay endpoints used by the page script and
// by static front-ends.
func (h *handlers) submitAPI(ft relay.FormType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := requestctx.Logger(ctx)

		sub, err := relay.Decode(r, ft)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "Invalid request body.", http.StatusBadRequest))
			return
		}

		res, err := h.relay.Send(ctx, sub)
		if err != nil {
			var verr *relay.ValidationError
			var rejected *relay.RejectedError
			switch {
			case errors.As(err, &verr):
				httpx.WriteError(ctx, w, httpx.NewError("validation_failed", verr.Error(), http.StatusBadRequest).
					WithDetails(map[string]any{"fields": verr.Fields}))
			case errors.Is(err, relay.ErrNotConfigured):
				httpx.WriteError(ctx, w, httpx.NewError("relay_not_configured", msgNotConfigured, http.StatusInternalServerError))
			case errors.As(err, &rejected) && rejected.Message != "":
				httpx.WriteError(ctx, w, httpx.NewError("relay_rejected", rejected.Message, http.StatusInternalServerError))
			default:
				logger.Error("relay api submission", zap.Error(err))
				httpx.WriteError(ctx, w, httpx.NewError("relay_failed", msgFailed, http.StatusInternalServerError))
			}
			return
		}

		message := res.Message
		if message == "" {
			message = msgSent
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "message": message})
	}
}

type scrollspyRequest struct {
	Lang     string            `json:"lang"`
	Sections []string          `json:"sections"`
	Events   []scrollspy.Event `json:"events"`
}

// scrollspy replays recorded scroll events and returns the section that
// should be highlighted.
func (h *handlers) scrollspy(w http.ResponseWriter, r *http.Request) {
	var req scrollspyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "Invalid request body.", http.StatusBadRequest))
		return
	}
	sections := req.Sections
	if len(sections) == 0 {
		lang := i18n.Normalize(req.Lang, h.lang)
		sections = h.store.Get(string(lang)).SectionIDs()
	}
	current, err := scrollspy.Replay(sections, req.Events)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_event", err.Error(), http.StatusBadRequest))
		return
	}
	payload := map[string]string{"current": current}
	if current != "" {
		payload["href"] = "#" + current
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *handlers) apiMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("method_not_allowed", "Method Not Allowed", http.StatusMethodNotAllowed))
}

func (h *handlers) apiNotFound(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "Not Found", http.StatusNotFound))
}
