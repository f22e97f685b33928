package app

import (
	"errors"
	"fmt"

	"docs-go/internal/guard"
)

// ErrRedirected is returned by Enter when the guard sends the user elsewhere.
var ErrRedirected = errors.New("redirected")

// Enter runs the route guard for the command about to execute. When the
// guard redirects, the navigator explains the redirect and Enter returns
// ErrRedirected.
func (a *DocsApp) Enter(route guard.Route) error {
	d := guard.Check(route, guard.AuthFrom(a.session))
	if d.Proceeds() {
		return nil
	}
	a.logger.Debug("route guarded", "route", route.Name, "decision", d.String())
	a.navigator.Replace(d.Name, d.Query)
	return fmt.Errorf("%w: %s", ErrRedirected, d)
}
