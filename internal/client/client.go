package client

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"docs-go/internal/docs"
)

const (
	// DefaultBaseURL is the API root of a locally running server.
	DefaultBaseURL = "http://localhost:8080/api"
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 10 * time.Second
	// DefaultChunkSize is the chunk size used by resumable uploads.
	DefaultChunkSize = 2 << 20
)

// Client is the document-assistant API client.
//
//	session, _ := docs.NewSession(local, scoped, logger)
//	c := client.NewClient(session, client.WithBaseURL("https://docs.example.com/api"))
//	page, err := c.Documents.List(ctx, docs.DocumentQuery{Size: 20})
type Client struct {
	baseURL       string
	session       *docs.Session
	httpClient    *http.Client
	refreshClient *http.Client
	navigator     docs.Navigator
	notifier      docs.Notifier
	logger        docs.Logger
	registerer    prometheus.Registerer
	ids           docs.IDGenerator
	userAgent     string
	chunkSize     int64

	pipeline *Pipeline

	// Services
	Auth      *AuthService
	Users     *UsersService
	Documents *DocumentsService
	Folders   *FoldersService
	Chunked   *ChunkedService
	Admin     *AdminService
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. "https://host/api".
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets the HTTP client used for ordinary requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRefreshClient sets the HTTP client used for the token refresh call.
func WithRefreshClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.refreshClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of both HTTP clients.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
		c.refreshClient.Timeout = timeout
	}
}

// WithNavigator sets where the user is sent when the session expires.
func WithNavigator(n docs.Navigator) Option {
	return func(c *Client) {
		c.navigator = n
	}
}

// WithNotifier sets the sink for user-visible error messages.
func WithNotifier(n docs.Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithLogger sets the client logger.
func WithLogger(l docs.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRegisterer registers the pipeline metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// WithIDGenerator sets the source of X-Request-ID values and upload identifiers.
func WithIDGenerator(ids docs.IDGenerator) Option {
	return func(c *Client) {
		c.ids = ids
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithChunkSize sets the chunk size for resumable uploads.
func WithChunkSize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// NewClient creates a client that authenticates with session.
func NewClient(session *docs.Session, opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		session:       session,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		refreshClient: &http.Client{Timeout: DefaultTimeout},
		navigator:     nopNavigator{},
		notifier:      docs.NopNotifier{},
		logger:        docs.NewNopLogger(),
		ids:           docs.UUIDGenerator{},
		userAgent:     defaultUserAgent,
		chunkSize:     DefaultChunkSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.pipeline = NewPipeline(PipelineConfig{
		BaseURL:       c.baseURL,
		Session:       session,
		HTTPClient:    c.httpClient,
		RefreshClient: c.refreshClient,
		Navigator:     c.navigator,
		Notifier:      c.notifier,
		Logger:        c.logger,
		Metrics:       NewMetrics(c.registerer),
		IDs:           c.ids,
		UserAgent:     c.userAgent,
	})

	c.Auth = &AuthService{client: c}
	c.Users = &UsersService{client: c}
	c.Documents = &DocumentsService{client: c}
	c.Folders = &FoldersService{client: c}
	c.Chunked = &ChunkedService{client: c}
	c.Admin = &AdminService{client: c}

	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *docs.Session {
	return c.session
}
