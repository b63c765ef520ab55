package web

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/app"
	appmw "github.com/khbm0110/JUUUU/internal/middleware"
	"github.com/khbm0110/JUUUU/internal/relay"
	"github.com/khbm0110/JUUUU/internal/requestctx"
	"github.com/khbm0110/JUUUU/internal/router"
)

const sentParam = "sent"

func (h *handlers) state(r *http.Request) *app.State {
	var sess app.Session
	if s, ok := appmw.SessionFromContext(r.Context()); ok {
		sess = s
	}
	return app.New(h.store, h.verifier, sess, appmw.Lang(r.Context()), r.URL.Path)
}

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	h.renderHome(w, r, http.StatusOK, FormState{}, FormState{})
}

func (h *handlers) renderHome(w http.ResponseWriter, r *http.Request, status int, contact, appointment FormState) {
	st := h.state(r)
	vm := buildHome(h.page(r, st, ""), st.Site(), st.Content())
	switch r.URL.Query().Get(sentParam) {
	case string(relay.FormContact):
		contact.Success = true
	case string(relay.FormAppointment):
		appointment.Success = true
		vm.ShowModal = true
	}
	vm.Contact = contact
	vm.Appointment = appointment
	vm.ModalForm = true
	if appointment.Error != "" || len(appointment.Errors) > 0 {
		vm.ShowModal = true
	}
	h.renderer.Serve(w, r, status, "home", vm)
}

func (h *handlers) appointmentPage(w http.ResponseWriter, r *http.Request) {
	h.renderAppointment(w, r, http.StatusOK, FormState{Success: r.URL.Query().Get(sentParam) != ""})
}

func (h *handlers) renderAppointment(w http.ResponseWriter, r *http.Request, status int, form FormState) {
	st := h.state(r)
	tr := st.Content()
	vm := buildHome(h.page(r, st, tr.Contact.AppointmentModal.Title), st.Site(), tr)
	vm.Appointment = form
	h.renderer.Serve(w, r, status, "appointment", vm)
}

// submitForm is the no-script fallback for the public forms: success
// redirects with a flag, failure re-renders with the values kept.
func (h *handlers) submitForm(ft relay.FormType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := appmw.Lang(r.Context())
		logger := requestctx.Logger(r.Context())

		sub, err := relay.Decode(r, ft)
		if err != nil {
			logger.Warn("decode form submission", zap.Error(err))
			h.rerender(w, r, ft, http.StatusBadRequest, FormState{Values: sub, Error: h.bundle.T(lang, "error.generic")})
			return
		}

		if _, err := h.relay.Send(r.Context(), sub); err != nil {
			form := FormState{Values: sub}
			status := http.StatusInternalServerError
			var verr *relay.ValidationError
			if errors.As(err, &verr) {
				status = http.StatusBadRequest
				form.Errors = make(map[string]string, len(verr.Fields))
				for field, code := range verr.Fields {
					form.Errors[field] = h.bundle.T(lang, "form."+code)
				}
			} else {
				form.Error = h.bundle.T(lang, "error.generic")
			}
			h.rerender(w, r, ft, status, form)
			return
		}

		target := "/?" + sentParam + "=" + string(ft) + "#contact"
		if ft == relay.FormAppointment && r.URL.Path == "/appointment" && r.PostFormValue("modal") == "" {
			target = "/appointment?" + sentParam + "=1"
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func (h *handlers) rerender(w http.ResponseWriter, r *http.Request, ft relay.FormType, status int, form FormState) {
	if ft == relay.FormAppointment {
		if r.PostFormValue("modal") != "" {
			h.renderHome(w, r, status, FormState{}, form)
			return
		}
		h.renderAppointment(w, r, status, form)
		return
	}
	h.renderHome(w, r, status, form, FormState{})
}

// notFound shows the public site for any unknown path, as the router maps
// such paths to the public view.
func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if router.Resolve(r.URL.Path, false) != router.Public {
		http.Redirect(w, r, router.LoginPath, http.StatusFound)
		return
	}
	h.renderHome(w, r, http.StatusNotFound, FormState{}, FormState{})
}
