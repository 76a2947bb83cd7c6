package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, NewClient(server.URL, "test-token", zerolog.Nop())
}

func TestFetchMovies_SearchMode(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		rawQuery string
	}{
		{name: "single word", query: "Avatar", rawQuery: "query=Avatar"},
		{name: "spaces", query: "the dark knight", rawQuery: "query=the%20dark%20knight"},
		{name: "reserved characters", query: "fast & furious+", rawQuery: "query=fast%20%26%20furious%2B"},
		{name: "unicode", query: "amélie", rawQuery: "query=am%C3%A9lie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search/movie", r.URL.Path)
				assert.Equal(t, tt.rawQuery, r.URL.RawQuery)
				assert.Equal(t, tt.query, r.URL.Query().Get("query"))
				assert.Empty(t, r.URL.Query().Get("sort_by"))
				assert.Equal(t, "application/json", r.Header.Get("accept"))
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

				json.NewEncoder(w).Encode(MoviesResponse{
					Page:    1,
					Results: []Movie{{ID: 19995, Title: "Avatar", PosterPath: "/avatar.jpg"}},
				})
			})

			movies, err := client.FetchMovies(context.Background(), tt.query)
			require.NoError(t, err)
			require.Len(t, movies, 1)
			assert.Equal(t, 19995, movies[0].ID)
			assert.Equal(t, "/avatar.jpg", movies[0].PosterPath)
		})
	}
}

func TestFetchMovies_DiscoverMode(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		assert.Equal(t, "popularity.desc", r.URL.Query().Get("sort_by"))
		_, hasQuery := r.URL.Query()["query"]
		assert.False(t, hasQuery)

		w.Write([]byte(`{"page":1,"results":[{"id":1,"title":"A","popularity":99.5},{"id":2,"title":"B","popularity":10}]}`))
	})

	movies, err := client.FetchMovies(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "A", movies[0].Title)
	assert.InDelta(t, 99.5, movies[0].Popularity, 0.001)
}

func TestFetchMovies_Errors(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status_message":"Invalid API key"}`))
		})

		_, err := client.FetchMovies(context.Background(), "Avatar")
		require.Error(t, err)

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
		assert.True(t, reqErr.IsUnauthorized())
		assert.Equal(t, "catalog request failed: 401 Unauthorized", err.Error())
	})

	t.Run("malformed body", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results": "not-a-list"}`))
		})

		_, err := client.FetchMovies(context.Background(), "")
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "/discover/movie", parseErr.Endpoint)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := NewClient(server.URL, "test-token", zerolog.Nop())
		_, err := client.FetchMovies(context.Background(), "Avatar")
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
	})

	t.Run("missing token reported on first use", func(t *testing.T) {
		client := NewClient("http://localhost", "", zerolog.Nop())
		_, err := client.FetchMovies(context.Background(), "Avatar")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("missing base URL reported on first use", func(t *testing.T) {
		client := NewClient("", "token", zerolog.Nop())
		_, err := client.FetchMovies(context.Background(), "")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestMovieDetails(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/19995", r.URL.Path)
		w.Write([]byte(`{"id":19995,"title":"Avatar","runtime":162,"imdb_id":"tt0499549","genres":[{"id":28,"name":"Action"},{"id":12,"name":"Adventure"}]}`))
	})

	details, err := client.MovieDetails(context.Background(), 19995)
	require.NoError(t, err)
	assert.Equal(t, "Avatar", details.Title)
	assert.Equal(t, 162, details.Runtime)
	assert.Equal(t, []string{"Action", "Adventure"}, details.GenreNames())

	_, err = client.MovieDetails(context.Background(), 0)
	assert.Error(t, err)
}

func TestMovieDetails_RequestErrorMessage(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
	})

	_, err := client.MovieDetails(context.Background(), 42)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.True(t, reqErr.IsNotFound())
	assert.Equal(t, "catalog request failed: 404 Not Found", err.Error())
	assert.NotContains(t, err.Error(), "fetch movies")
}

func TestClientOptions(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("with timeout", func(t *testing.T) {
		client := NewClient("http://localhost", "key", logger, WithTimeout(5*time.Second))
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	})

	t.Run("with custom http client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		client := NewClient("http://localhost", "key", logger, WithHTTPClient(customClient))
		assert.Equal(t, customClient, client.httpClient)
	})

	t.Run("timeout does not modify a supplied http client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		client := NewClient("http://localhost", "key", logger, WithHTTPClient(customClient), WithTimeout(5*time.Second))
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
		assert.Equal(t, 10*time.Second, customClient.Timeout)
		assert.NotSame(t, customClient, client.httpClient)
	})

	t.Run("trailing slash trimmed", func(t *testing.T) {
		client := NewClient("http://localhost/3/", "key", logger)
		assert.Equal(t, "http://localhost/3", client.baseURL)
	})
}

func TestPosterURL(t *testing.T) {
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", PosterURL(DefaultImageBaseURL, "/abc.jpg"))
	assert.Equal(t, "https://img.example/x/abc.jpg", PosterURL("https://img.example/x/", "abc.jpg"))
	assert.Empty(t, PosterURL(DefaultImageBaseURL, ""))

	client := NewClient("http://localhost", "key", zerolog.Nop(), WithImageBaseURL("https://cdn.example"))
	assert.Equal(t, "https://cdn.example/p.jpg", client.PosterURL(Movie{PosterPath: "/p.jpg"}))
}

func TestMovieYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2009-12-15", 2009},
		{"", 0},
		{"19", 0},
		{"abcd-01-01", 0},
	}

	for _, tt := range tests {
		m := Movie{ReleaseDate: tt.date}
		assert.Equal(t, tt.want, m.Year(), tt.date)
	}
}
