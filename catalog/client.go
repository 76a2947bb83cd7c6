package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the TMDB v3 API root
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Client represents a TMDB API client
type Client struct {
	baseURL      string
	token        string
	imageBaseURL string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewClient creates a new catalog client. Missing settings are reported by
// the first request rather than here.
func NewClient(baseURL, token string, logger zerolog.Logger, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		imageBaseURL: DefaultImageBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ImageBaseURL returns the prefix used for poster URLs
func (c *Client) ImageBaseURL() string {
	return c.imageBaseURL
}

// PosterURL returns the absolute poster URL for a movie, or "" if it has none
func (c *Client) PosterURL(movie Movie) string {
	return PosterURL(c.imageBaseURL, movie.PosterPath)
}

// doRequest performs an authenticated GET and returns the raw body
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if c.token == "" {
		return nil, fmt.Errorf("%w: API token is required", ErrInvalidConfig)
	}

	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		// Encode spaces as %20; a literal '+' is already escaped as %2B.
		requestURL += "?" + strings.ReplaceAll(params.Encode(), "+", "%20")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", params.Get("query")).
		Msg("Making catalog API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.baseURL + endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: c.baseURL + endpoint, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return body, nil
}

// FetchMovies searches the catalog for query. An empty query lists movies
// sorted by popularity instead.
func (c *Client) FetchMovies(ctx context.Context, query string) ([]Movie, error) {
	endpoint := "/discover/movie"
	params := url.Values{}
	if query != "" {
		endpoint = "/search/movie"
		params.Set("query", query)
	} else {
		params.Set("sort_by", "popularity.desc")
	}

	body, err := c.doRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var response MoviesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &ParseError{Endpoint: endpoint, Err: err}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("count", len(response.Results)).
		Msg("Retrieved movies from catalog")

	return response.Results, nil
}

// MovieDetails retrieves the full record for a single movie
func (c *Client) MovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid movie id: %d", id)
	}

	endpoint := "/movie/" + strconv.Itoa(id)
	body, err := c.doRequest(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var details MovieDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, &ParseError{Endpoint: endpoint, Err: err}
	}

	return &details, nil
}
