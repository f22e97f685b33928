package docs

// Route names understood by the Navigator and the route guard.
const (
	RouteLogin     = "login"
	RouteRegister  = "register"
	RouteProfile   = "profile"
	RouteDocuments = "documents"
)

// Navigator is the client's view of "where the user currently is".
// The pipeline uses it to send the user back to the login route when the
// session cannot be recovered.
type Navigator interface {
	// CurrentRoute returns the name of the active route.
	CurrentRoute() string

	// Replace moves to the named route without leaving the current route
	// in history. query carries route parameters such as "redirect".
	Replace(name string, query map[string]string)
}

// Notifier shows short user-visible messages.
type Notifier interface {
	Error(msg string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Error(string) {}
