// Package router derives which top-level view a path shows.
package router

import "strings"

// View is one of the three top-level screens.
type View int

const (
	Public View = iota
	Login
	Admin
)

func (v View) String() string {
	switch v {
	case Login:
		return "LOGIN"
	case Admin:
		return "ADMIN"
	default:
		return "PUBLIC"
	}
}

const (
	AdminPath = "/admin"
	LoginPath = "/login"
)

// Resolve maps a request path and the authenticated flag to a view. It is
// evaluated on every request, so history navigation always lands on the
// view its path implies.
func Resolve(path string, authenticated bool) View {
	switch {
	case IsAdminPath(path):
		if authenticated {
			return Admin
		}
		return Login
	case cleanPath(path) == LoginPath:
		if authenticated {
			return Admin
		}
		return Login
	default:
		return Public
	}
}

// IsAdminPath reports whether path is /admin or below it.
func IsAdminPath(path string) bool {
	p := cleanPath(path)
	return p == AdminPath || strings.HasPrefix(p, AdminPath+"/")
}

// SafeNext returns next when it is an admin path, otherwise /admin. It keeps
// post-login redirects on this site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return AdminPath
	}
	if !IsAdminPath(strings.SplitN(next, "?", 2)[0]) {
		return AdminPath
	}
	return next
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return strings.ToLower(path)
}
