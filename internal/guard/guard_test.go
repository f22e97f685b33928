package guard_test

import (
	"testing"

	"docs-go/internal/docs"
	"docs-go/internal/guard"
	"docs-go/internal/testutil"
)

func TestCheck(t *testing.T) {
	anonymous := guard.Auth{}
	user := guard.Auth{Authenticated: true, Role: docs.RoleRegularUser}
	admin := guard.Auth{Authenticated: true, Role: docs.RoleAdministrator}

	documents := guard.Route{Name: docs.RouteDocuments, Path: "doc list --page 2", RequiresAuth: true}
	adminUsers := guard.Route{Name: "admin", Path: "admin login-logs", RequiresAuth: true, RequiresAdmin: true}
	adminOnly := guard.Route{Name: "admin", RequiresAdmin: true}
	login := guard.Route{Name: docs.RouteLogin}
	register := guard.Route{Name: docs.RouteRegister}
	public := guard.Route{Name: "forgot-password"}

	tests := []struct {
		name      string
		to        guard.Route
		auth      guard.Auth
		wantName  string
		wantQuery map[string]string
	}{
		{"anonymous to protected route", documents, anonymous, docs.RouteLogin, map[string]string{"redirect": "doc list --page 2"}},
		{"user to protected route", documents, user, "", nil},
		{"anonymous to admin route", adminUsers, anonymous, docs.RouteLogin, map[string]string{"redirect": "admin login-logs"}},
		{"anonymous to admin-only route without path", adminOnly, anonymous, docs.RouteLogin, map[string]string{"redirect": "admin"}},
		{"user to admin route", adminUsers, user, docs.RouteProfile, nil},
		{"admin to admin route", adminUsers, admin, "", nil},
		{"authenticated to login", login, user, docs.RouteDocuments, nil},
		{"authenticated to register", register, admin, docs.RouteDocuments, nil},
		{"anonymous to login", login, anonymous, "", nil},
		{"anonymous to public route", public, anonymous, "", nil},
		{"authenticated to public route", public, user, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guard.Check(tt.to, tt.auth)
			if got.Name != tt.wantName {
				t.Fatalf("Check() = %v, want redirect to %q", got, tt.wantName)
			}
			if tt.wantName == "" && !got.Proceeds() {
				t.Error("Proceeds() = false")
			}
			if len(got.Query) != len(tt.wantQuery) {
				t.Fatalf("Query = %v, want %v", got.Query, tt.wantQuery)
			}
			for k, v := range tt.wantQuery {
				if got.Query[k] != v {
					t.Errorf("Query[%s] = %q, want %q", k, got.Query[k], v)
				}
			}
		})
	}
}

func TestAuthFrom(t *testing.T) {
	s := testutil.NewTestSession(t, testutil.NewTestDatabase(t))
	if auth := guard.AuthFrom(s); auth.Authenticated {
		t.Errorf("AuthFrom(empty session) = %+v", auth)
	}

	if err := s.Login("A1", "R1", docs.User{ID: 1, Role: docs.RoleAdministrator}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	auth := guard.AuthFrom(s)
	if !auth.Authenticated || auth.Role != docs.RoleAdministrator {
		t.Errorf("AuthFrom() = %+v", auth)
	}
	if d := guard.Check(guard.Route{Name: "admin", RequiresAdmin: true}, auth); !d.Proceeds() {
		t.Errorf("Check() = %v, want proceed", d)
	}
}

func TestDecision_String(t *testing.T) {
	if s := guard.Proceed.String(); s != "proceed" {
		t.Errorf("Proceed.String() = %q", s)
	}
	d := guard.Decision{Name: docs.RouteLogin, Query: map[string]string{"redirect": "user me"}}
	if s := d.String(); s != "redirect to login (then user me)" {
		t.Errorf("String() = %q", s)
	}
}
