// Package app holds the per-request application state: which language is
// active, whether the visitor is the signed-in admin, and which view the
// current path resolves to. Every mutation goes through a method here.
package app

import (
	"context"
	"errors"

	"github.com/khbm0110/JUUUU/internal/auth"
	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/i18n"
	"github.com/khbm0110/JUUUU/internal/router"
)

// Session is the subset of session.Session the state needs.
type Session interface {
	Authenticated() bool
	SignIn(email string) error
	SignOut()
}

// State is built for each request from the shared store and the visitor's
// session.
type State struct {
	store    *content.Store
	verifier auth.Verifier
	session  Session

	language i18n.Language
	route    string
	view     router.View
}

// New derives the initial view from path and the session flag.
func New(store *content.Store, verifier auth.Verifier, sess Session, lang i18n.Language, path string) *State {
	s := &State{
		store:    store,
		verifier: verifier,
		session:  sess,
		language: i18n.Normalize(string(lang), i18n.Default),
	}
	s.Navigate(path)
	return s
}

// Language returns the active language.
func (s *State) Language() i18n.Language { return s.language }

// Dir returns "rtl" or "ltr" for the active language.
func (s *State) Dir() string { return i18n.Direction(s.language) }

// Route returns the current path.
func (s *State) Route() string { return s.route }

// View returns the view the current route resolves to.
func (s *State) View() router.View { return s.view }

// IsAuthenticated reports the session flag.
func (s *State) IsAuthenticated() bool {
	return s.session != nil && s.session.Authenticated()
}

// SetLanguage switches the active language. Codes outside the supported set
// are ignored and reported with false.
func (s *State) SetLanguage(code string) bool {
	lang, ok := i18n.Parse(code)
	if !ok {
		return false
	}
	s.language = lang
	return true
}

// Navigate moves to path and re-derives the view.
func (s *State) Navigate(path string) router.View {
	if path == "" {
		path = "/"
	}
	s.route = path
	s.view = router.Resolve(path, s.IsAuthenticated())
	return s.view
}

// Login verifies the credentials. On success the session is marked
// authenticated and the view becomes ADMIN; on failure the view stays LOGIN
// and auth.ErrInvalidCredentials is returned.
func (s *State) Login(ctx context.Context, email, password string) error {
	if s.verifier == nil || s.session == nil {
		return errors.New("app: login is not configured")
	}
	if err := s.verifier.Verify(ctx, email, password); err != nil {
		s.view = router.Login
		return err
	}
	if err := s.session.SignIn(email); err != nil {
		s.view = router.Login
		return err
	}
	if !router.IsAdminPath(s.route) {
		s.route = router.AdminPath
	}
	s.view = router.Admin
	return nil
}

// Logout clears the authenticated flag and returns to the public site.
func (s *State) Logout() {
	if s.session != nil {
		s.session.SignOut()
	}
	s.route = "/"
	s.view = router.Public
}

// Content returns the copy for the active language.
func (s *State) Content() content.Translations {
	return s.store.Get(string(s.language))
}

// Site returns the committed site data.
func (s *State) Site() content.SiteData {
	return s.store.Site()
}

// UpdateSiteData replaces the committed site. See content.Store.ReplaceAll
// for the meaning of the returned error.
func (s *State) UpdateSiteData(ctx context.Context, data content.SiteData) error {
	if !s.IsAuthenticated() {
		return auth.ErrInvalidCredentials
	}
	return s.store.ReplaceAll(ctx, data)
}
