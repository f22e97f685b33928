package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"docs-go/internal/docs"
)

// TerminalNavigator maps route changes onto a CLI session. The current
// route is the command being run; a redirect cannot move the user, so it
// is remembered and explained on out.
type TerminalNavigator struct {
	mu       sync.Mutex
	out      io.Writer
	route    string
	redirect *Redirect
}

// Redirect is a route change requested while a command ran.
type Redirect struct {
	Name  string
	Query map[string]string
}

// NewTerminalNavigator creates a navigator positioned at route.
func NewTerminalNavigator(route string, out io.Writer) *TerminalNavigator {
	return &TerminalNavigator{route: route, out: out}
}

func (n *TerminalNavigator) CurrentRoute() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// Replace records the redirect and tells the user which command to run.
// Only the first redirect of a command is reported.
func (n *TerminalNavigator) Replace(name string, query map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.redirect != nil {
		n.route = name
		return
	}
	q := make(map[string]string, len(query))
	for k, v := range query {
		q[k] = v
	}
	n.redirect = &Redirect{Name: name, Query: q}
	n.route = name

	msg := fmt.Sprintf("Run `docs %s` to continue.", routeCommand(name))
	if then := q["redirect"]; then != "" {
		msg = fmt.Sprintf("Run `docs %s`, then retry `docs %s`.", routeCommand(name), then)
	}
	fmt.Fprintln(n.out, msg)
}

// Redirected returns the first recorded redirect, or nil.
func (n *TerminalNavigator) Redirected() *Redirect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redirect
}

// routeCommand returns the command that serves a named route.
func routeCommand(name string) string {
	switch name {
	case docs.RouteLogin:
		return "auth login"
	case docs.RouteRegister:
		return "auth register"
	case docs.RouteProfile:
		return "user me"
	case docs.RouteDocuments:
		return "doc list"
	default:
		return name
	}
}

var _ docs.Navigator = (*TerminalNavigator)(nil)

// TerminalNotifier writes user-visible errors to a terminal stream.
type TerminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out}
}

func (n *TerminalNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "error: %s\n", msg)
}

var _ docs.Notifier = (*TerminalNotifier)(nil)

// Prompter reads answers from the user. Secrets are read without echo
// when in is a terminal.
type Prompter struct {
	in  *os.File
	out io.Writer
	r   *bufio.Reader
}

// NewPrompter reads from in and writes prompts to out.
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, r: bufio.NewReader(in)}
}

// Line asks for a single line of input.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Secret asks for a value without echoing it.
func (p *Prompter) Secret(label string) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.Line(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}
