package web

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/auth"
	appmw "github.com/khbm0110/JUUUU/internal/middleware"
	"github.com/khbm0110/JUUUU/internal/requestctx"
	"github.com/khbm0110/JUUUU/internal/router"
)

func (h *handlers) loginForm(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	next := r.URL.Query().Get("next")
	if st.View() == router.Admin {
		http.Redirect(w, r, router.SafeNext(next), http.StatusFound)
		return
	}
	vm := LoginPage{
		Page:    h.page(r, st, h.bundle.T(st.Language(), "login.title")),
		Next:    next,
		Expired: r.URL.Query().Get("reason") == appmw.ReasonExpired,
	}
	h.renderer.Serve(w, r, http.StatusOK, "login", vm)
}

func (h *handlers) loginSubmit(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	logger := requestctx.Logger(r.Context())
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	next := r.PostFormValue("next")

	vm := LoginPage{
		Page:  h.page(r, st, h.bundle.T(st.Language(), "login.title")),
		Email: email,
		Next:  next,
	}

	if err := st.Login(r.Context(), email, password); err != nil {
		status := http.StatusUnauthorized
		vm.Error = h.bundle.T(st.Language(), "login.error")
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logger.Error("admin login", zap.Error(err))
			status = http.StatusInternalServerError
			vm.Error = h.bundle.T(st.Language(), "error.generic")
		} else {
			logger.Info("admin login rejected")
		}
		h.renderer.Serve(w, r, status, "login", vm)
		return
	}

	logger.Info("admin signed in")
	target := router.SafeNext(next)
	if appmw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := appmw.SessionFromContext(r.Context()); ok {
		h.workspace.Discard(sess.ID())
	}
	h.state(r).Logout()

	if appmw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
