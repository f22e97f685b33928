package testutil

import (
	"sync"

	"docs-go/internal/docs"
)

// Redirect is a navigation recorded by RecordingNavigator.
type Redirect struct {
	Name  string
	Query map[string]string
}

// RecordingNavigator tracks the current route and records every Replace.
// Safe for concurrent use.
type RecordingNavigator struct {
	mu        sync.Mutex
	current   string
	redirects []Redirect
}

// NewRecordingNavigator creates a navigator positioned at route.
func NewRecordingNavigator(route string) *RecordingNavigator {
	return &RecordingNavigator{current: route}
}

func (n *RecordingNavigator) CurrentRoute() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *RecordingNavigator) Replace(name string, query map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, Redirect{Name: name, Query: query})
	n.current = name
}

// Redirects returns the recorded navigations in order.
func (n *RecordingNavigator) Redirects() []Redirect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Redirect(nil), n.redirects...)
}

// RecordingNotifier collects error notifications. Safe for concurrent use.
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

// Messages returns the recorded notifications in order.
func (n *RecordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// Compile-time checks
var (
	_ docs.Navigator = (*RecordingNavigator)(nil)
	_ docs.Notifier  = (*RecordingNotifier)(nil)
)
