package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"docs-go/internal/docs"
)

const refreshTokenPath = "/auth/refresh-token"

const (
	msgSessionExpired   = "your session has expired, please log in again"
	msgPermissionDenied = "you do not have permission to perform this operation"
)

// Doer sends a single HTTP request. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type refreshState int

const (
	stateIdle refreshState = iota
	stateRefreshing
)

type refreshOutcome struct {
	token string
	err   error
}

// PipelineConfig holds the collaborators of a Pipeline. Session is required.
type PipelineConfig struct {
	BaseURL string
	Session *docs.Session

	// HTTPClient sends ordinary API requests.
	HTTPClient Doer
	// RefreshClient sends the token refresh call outside the pipeline.
	RefreshClient Doer

	Navigator docs.Navigator
	Notifier  docs.Notifier
	Logger    docs.Logger
	Metrics   *Metrics
	IDs       docs.IDGenerator
	UserAgent string
}

// Pipeline authorizes outgoing requests with the session's access token and
// recovers from expired tokens. When a request is rejected with 401 the
// pipeline refreshes the token pair once; requests rejected while that
// refresh is in flight wait for it and are then re-issued with the new
// token. A request is never re-issued more than once.
type Pipeline struct {
	baseURL   string
	session   *docs.Session
	http      Doer
	refresher Doer
	navigator docs.Navigator
	notifier  docs.Notifier
	logger    docs.Logger
	metrics   *Metrics
	ids       docs.IDGenerator
	userAgent string

	mu      sync.Mutex
	state   refreshState
	waiters []chan refreshOutcome
}

// NewPipeline creates a pipeline. Missing optional collaborators get
// no-op defaults.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		session:   cfg.Session,
		http:      cfg.HTTPClient,
		refresher: cfg.RefreshClient,
		navigator: cfg.Navigator,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		ids:       cfg.IDs,
		userAgent: cfg.UserAgent,
	}
	if p.http == nil {
		p.http = &http.Client{Timeout: DefaultTimeout}
	}
	if p.refresher == nil {
		p.refresher = &http.Client{Timeout: DefaultTimeout}
	}
	if p.navigator == nil {
		p.navigator = nopNavigator{}
	}
	if p.notifier == nil {
		p.notifier = docs.NopNotifier{}
	}
	if p.logger == nil {
		p.logger = docs.NewNopLogger()
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}
	if p.ids == nil {
		p.ids = docs.UUIDGenerator{}
	}
	if p.userAgent == "" {
		p.userAgent = defaultUserAgent
	}
	return p
}

// Do sends req, authorizing it with the current access token. Non-2xx
// responses are returned as-is; the caller owns resp.Body.
func (p *Pipeline) Do(req *http.Request) (*http.Response, error) {
	if !isRefreshRequest(req) {
		authorize(req, p.session.AccessToken())
	}
	return p.send(req, false)
}

func (p *Pipeline) send(req *http.Request, retried bool) (*http.Response, error) {
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	p.metrics.observeStatus(resp.StatusCode)
	p.logger.Debug("api response", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "retried", retried)

	switch {
	case resp.StatusCode == http.StatusUnauthorized && !retried:
		if isRefreshRequest(req) {
			p.expireSession()
			return resp, nil
		}
		return p.recoverUnauthorized(req, resp)
	case resp.StatusCode == http.StatusForbidden:
		p.notifier.Error(msgPermissionDenied)
	}
	return resp, nil
}

// recoverUnauthorized either joins the in-flight refresh or starts one.
func (p *Pipeline) recoverUnauthorized(req *http.Request, unauthorized *http.Response) (*http.Response, error) {
	wait, current, leader := p.join(req.Header.Get(headerAuthorization))
	if !leader {
		discard(unauthorized)
		if current != "" {
			return p.retry(req, current)
		}
		return p.await(req, wait)
	}

	token, err := p.refresh(req.Context())
	p.metrics.observeRefresh(err)
	if err != nil {
		p.logger.Info("session could not be refreshed", "error", err)
		p.expireSession()
		p.settle(refreshOutcome{err: err})
		if refreshRejected(err) {
			return unauthorized, nil
		}
		discard(unauthorized)
		return nil, err
	}

	p.settle(refreshOutcome{token: token})
	discard(unauthorized)
	return p.retry(req, token)
}

// join admits a request rejected with the given Authorization header to the
// refresh cycle. While a refresh is in flight the request is queued behind
// earlier waiters and receives the outcome on wait. A request that went out
// before the last refresh settled gets the session's current token back and
// is re-issued without rotating the pair again. Otherwise the caller becomes
// the leader, must run the refresh and then settle.
func (p *Pipeline) join(sent string) (wait chan refreshOutcome, current string, leader bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateRefreshing {
		wait = make(chan refreshOutcome, 1)
		p.waiters = append(p.waiters, wait)
		p.metrics.refreshWaiters.Set(float64(len(p.waiters)))
		return wait, "", false
	}
	if token := p.session.AccessToken(); token != "" && sent != "Bearer "+token {
		return nil, token, false
	}
	p.state = stateRefreshing
	return nil, "", true
}

func (p *Pipeline) await(req *http.Request, wait <-chan refreshOutcome) (*http.Response, error) {
	select {
	case out := <-wait:
		if out.err != nil {
			return nil, out.err
		}
		return p.retry(req, out.token)
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

// settle returns the pipeline to idle and hands the outcome to every
// waiter in admission order.
func (p *Pipeline) settle(out refreshOutcome) {
	p.mu.Lock()
	waiters := p.waiters
	p.waiters = nil
	p.state = stateIdle
	p.metrics.refreshWaiters.Set(0)
	p.mu.Unlock()

	for _, w := range waiters {
		w <- out
	}
}

func (p *Pipeline) retry(req *http.Request, token string) (*http.Response, error) {
	next, err := rewind(req)
	if err != nil {
		return nil, err
	}
	authorize(next, token)
	p.metrics.retriesTotal.Inc()
	return p.send(next, true)
}

// refresh exchanges the refresh token for a new pair and stores it in the
// session. The call is not cancelled with the triggering request because
// other requests may be waiting on it.
func (p *Pipeline) refresh(ctx context.Context) (string, error) {
	refreshToken := p.session.RefreshToken()
	if refreshToken == "" {
		return "", &RefreshError{Err: errNoRefreshToken}
	}

	reqURL := p.baseURL + refreshTokenPath + "?" + url.Values{"refreshToken": {refreshToken}}.Encode()
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, reqURL, nil)
	if err != nil {
		return "", &RefreshError{Err: fmt.Errorf("creating refresh request: %w", err)}
	}
	req.Header.Set(headerUserAgent, p.userAgent)
	req.Header.Set(headerRequestID, p.ids.New())

	resp, err := p.refresher.Do(req)
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RefreshError{Err: fmt.Errorf("reading refresh response: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return "", &RefreshError{Err: parseError(resp.StatusCode, body)}
	}

	var tokens docs.TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return "", &RefreshError{Err: fmt.Errorf("decoding refresh response: %w", err)}
	}
	if tokens.AccessToken == "" {
		return "", &RefreshError{Err: errors.New("refresh response has no access token")}
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	if err := p.session.SetTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		p.logger.Warn("persisting refreshed tokens", "error", err)
	}
	p.logger.Info("access token refreshed")
	return tokens.AccessToken, nil
}

// expireSession clears the session and sends the user to the login route,
// unless they are already there.
func (p *Pipeline) expireSession() {
	if err := p.session.Clear(); err != nil {
		p.logger.Warn("clearing session", "error", err)
	}
	current := p.navigator.CurrentRoute()
	if current == docs.RouteLogin {
		return
	}
	p.navigator.Replace(docs.RouteLogin, map[string]string{"redirect": current})
	p.notifier.Error(msgSessionExpired)
}

// pending returns the number of requests waiting on the current refresh.
func (p *Pipeline) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

// refreshRejected reports whether the server refused the refresh token
// itself, as opposed to the refresh failing for another reason.
func refreshRejected(err error) bool {
	if errors.Is(err, errNoRefreshToken) {
		return true
	}
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.IsUnauthorized()
}

func isRefreshRequest(req *http.Request) bool {
	return strings.HasSuffix(req.URL.Path, refreshTokenPath)
}

func authorize(req *http.Request, token string) {
	if token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}
}

// rewind clones req with a fresh copy of its body.
func rewind(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("%s %s: request body cannot be replayed", req.Method, req.URL.Path)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	next.Body = body
	return next, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

type nopNavigator struct{}

func (nopNavigator) CurrentRoute() string              { return "" }
func (nopNavigator) Replace(string, map[string]string) {}
