// Package google provides a kwsearch.Searcher backed by the Google Custom
// Search JSON API, with lazily resolved credentials.
package google

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Placeholder credentials written into sample configuration files.
const (
	PlaceholderAPIKey         = "YOUR_GOOGLE_API_KEY_HERE"
	PlaceholderSearchEngineID = "YOUR_CUSTOM_SEARCH_ENGINE_ID_HERE"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryCount = 3
	DefaultRetryDelay = time.Second
	DefaultUserAgent  = "kwsearch/1.0"
)

// Secrets holds the Custom Search API credentials.
type Secrets struct {
	// APIKey is the Google API key.
	APIKey string `json:"api_key"`
	// SearchEngineID is the programmable search engine id (cx).
	SearchEngineID string `json:"search_engine_id"`
}

// Usable reports whether both values are set and neither is a placeholder.
func (s Secrets) Usable() bool {
	return s.APIKey != "" && s.APIKey != PlaceholderAPIKey &&
		s.SearchEngineID != "" && s.SearchEngineID != PlaceholderSearchEngineID
}

// FetchSecrets is a function type that retrieves Custom Search credentials.
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets function that provides static credentials.
func StaticSecrets(apiKey, searchEngineID string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{APIKey: apiKey, SearchEngineID: searchEngineID}, nil
	}
}

// EnvSecrets reads GOOGLE_API_KEY and GOOGLE_CUSTOM_SEARCH_ENGINE_ID.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return Secrets{}, errors.New("GOOGLE_API_KEY environment variable is not set")
		}

		engineID := os.Getenv("GOOGLE_CUSTOM_SEARCH_ENGINE_ID")
		if engineID == "" {
			return Secrets{}, errors.New("GOOGLE_CUSTOM_SEARCH_ENGINE_ID environment variable is not set")
		}

		return Secrets{APIKey: apiKey, SearchEngineID: engineID}, nil
	}
}

type clientOptions struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	retryCount int
	retryDelay time.Duration
	userAgent  string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// WithEndpoint overrides the API base URL. It must end with a slash.
func WithEndpoint(endpoint string) ClientOption {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout bounds each individual API attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRetry sets how many extra attempts are made for transient failures.
// The wait before the nth retry is n times delay.
func WithRetry(count int, delay time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.retryCount = count
		o.retryDelay = delay
	}
}

// WithUserAgent sets the User-Agent sent with each request.
func WithUserAgent(ua string) ClientOption {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

type conn struct {
	svc     *customsearch.Service
	secrets Secrets
}

// Client owns the lazily created Custom Search service.
type Client struct {
	getConn func() (conn, error)
	tracer  trace.Tracer
	opts    clientOptions
}

// NewClient creates a Client. Credentials are fetched and the service is
// built on first use; the outcome, success or failure, is cached.
func NewClient(fetchSecrets FetchSecrets, opts ...ClientOption) *Client {
	o := clientOptions{
		timeout:    DefaultTimeout,
		retryCount: DefaultRetryCount,
		retryDelay: DefaultRetryDelay,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	getConn := sync.OnceValues(func() (conn, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return conn{}, errors.WithSecondaryError(kwsearch.ErrUnauthorized,
				errors.Wrap(err, "failed to fetch secrets"))
		}

		if !secrets.Usable() {
			return conn{}, errors.WithSecondaryError(kwsearch.ErrUnauthorized,
				errors.New("Google API key or search engine id is missing"))
		}

		// The API key travels as a query parameter, so the service is built on
		// a plain HTTP client and never looks up Google default credentials.
		svcOpts := []option.ClientOption{option.WithHTTPClient(o.httpClient)}
		if o.endpoint != "" {
			svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
		}

		svc, err := customsearch.NewService(context.Background(), svcOpts...)
		if err != nil {
			return conn{}, errors.WithSecondaryError(kwsearch.ErrBackendUnavailable,
				errors.Wrap(err, "failed to create custom search service"))
		}
		svc.UserAgent = o.userAgent

		return conn{svc: svc, secrets: secrets}, nil
	})

	return &Client{
		getConn: getConn,
		tracer:  otel.Tracer("kwsearch-google"),
		opts:    o,
	}
}
