package catalog

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout. A client supplied through
// WithHTTPClient is copied, never modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			httpClient := *c.httpClient
			httpClient.Timeout = timeout
			c.httpClient = &httpClient
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithImageBaseURL sets the prefix used to build poster URLs.
func WithImageBaseURL(base string) Option {
	return func(c *Client) {
		c.imageBaseURL = base
	}
}
