package middleware

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/requestctx"
)

// Reasons attached to the login redirect.
const (
	ReasonLoginRequired = "login"
	ReasonExpired       = "expired"
)

// RequireAdmin lets authenticated sessions through and sends everyone else to
// the login page. htmx requests get a 401 with HX-Redirect instead of a 302.
func RequireAdmin(loginPath string) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if ok && sess.Authenticated() {
				w.Header().Set("Cache-Control", "no-store")
				next.ServeHTTP(w, r)
				return
			}
			reason := ReasonLoginRequired
			if SessionExpired(r.Context()) {
				reason = ReasonExpired
			}
			requestctx.Logger(r.Context()).Info("admin access denied", zap.String("reason", reason))
			handleUnauthorized(w, r, loginPath, reason)
		})
	}
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	target := loginRedirect(loginPath, r.URL.RequestURI(), reason)
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func loginRedirect(loginPath, next, reason string) string {
	u, err := url.Parse(loginPath)
	if err != nil {
		return loginPath
	}
	q := u.Query()
	if next != "" {
		q.Set("next", next)
	}
	if reason == ReasonExpired {
		q.Set("reason", reason)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
