// Package guard decides whether a navigation may proceed given the caller's
// authentication state.
package guard

import (
	"fmt"

	"docs-go/internal/docs"
)

// Route is a navigation target.
type Route struct {
	Name string

	// Path is the full target, including parameters. It is what the login
	// route returns to after a successful sign-in.
	Path string

	RequiresAuth  bool
	RequiresAdmin bool
}

// Auth is the caller's authentication state at the time of navigation.
type Auth struct {
	Authenticated bool
	Role          docs.Role
}

// AuthFrom reads the authentication state of s.
func AuthFrom(s *docs.Session) Auth {
	return Auth{Authenticated: s.IsAuthenticated(), Role: s.Role()}
}

// Decision is the outcome of Check. The zero value means proceed.
type Decision struct {
	// Name is the route to redirect to. Empty means proceed.
	Name  string
	Query map[string]string
}

// Proceed is the decision that allows navigation.
var Proceed = Decision{}

// Proceeds reports whether navigation may continue to the requested route.
func (d Decision) Proceeds() bool {
	return d.Name == ""
}

func (d Decision) String() string {
	if d.Proceeds() {
		return "proceed"
	}
	if r, ok := d.Query["redirect"]; ok {
		return fmt.Sprintf("redirect to %s (then %s)", d.Name, r)
	}
	return "redirect to " + d.Name
}

// Check applies the navigation rules to the target route, in order:
//  1. an unauthenticated caller cannot enter a route requiring auth, and is
//     sent to login with the target remembered;
//  2. an admin route sends an unauthenticated caller to login and a
//     non-administrator to their profile;
//  3. an authenticated caller visiting login or register goes to documents.
func Check(to Route, auth Auth) Decision {
	if to.RequiresAuth && !auth.Authenticated {
		return toLogin(to)
	}

	if to.RequiresAdmin {
		if !auth.Authenticated {
			return toLogin(to)
		}
		if auth.Role != docs.RoleAdministrator {
			return Decision{Name: docs.RouteProfile}
		}
	}

	if auth.Authenticated && (to.Name == docs.RouteLogin || to.Name == docs.RouteRegister) {
		return Decision{Name: docs.RouteDocuments}
	}

	return Proceed
}

func toLogin(to Route) Decision {
	target := to.Path
	if target == "" {
		target = to.Name
	}
	return Decision{Name: docs.RouteLogin, Query: map[string]string{"redirect": target}}
}
