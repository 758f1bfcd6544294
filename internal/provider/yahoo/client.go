package yahoo

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the quote endpoint; symbols are appended to it.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v7/finance/quote?symbols="

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches quotes from the Yahoo Finance quote endpoint.
// It holds no mutable state and may be shared between goroutines.
type Client struct {
	// baseURL is the endpoint prefix the symbol list is appended to.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// logger receives the causes behind synthesized error payloads.
	logger logrus.FieldLogger
}

// ClientOption is a configuration option for the quote client.
type ClientOption func(*Client)

// WithBaseURL sets the endpoint prefix.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new quote client.
func NewClient(options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		logger:     logrus.StandardLogger(),
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Name identifies the source in logs.
func (c *Client) Name() string { return "YahooFinance" }
