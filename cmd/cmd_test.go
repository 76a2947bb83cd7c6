package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/marquee/catalog"
	"github.com/s0up4200/marquee/config"
	"github.com/s0up4200/marquee/filter"
	"github.com/s0up4200/marquee/telemetry"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		resp := catalog.MoviesResponse{Page: 1}
		switch r.URL.Path {
		case "/search/movie":
			resp.Results = []catalog.Movie{
				{ID: 19995, Title: "Avatar", ReleaseDate: "2009-12-15", PosterPath: "/avatar.jpg", VoteAverage: 7.6},
				{ID: 76600, Title: "Avatar: The Way of Water", ReleaseDate: "2022-12-14", VoteAverage: 7.7},
			}
		case "/discover/movie":
			resp.Results = []catalog.Movie{{ID: 438631, Title: "Dune", ReleaseDate: "2021-09-15"}}
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
			return
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	filterExpr, preset, noRecord, allPresets, trendingLimit = "", "", false, false, 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, catalogURL string) string {
	t.Helper()
	dir := t.TempDir()
	contents := "catalog:\n" +
		"  url: " + catalogURL + "\n" +
		"  token: test-token\n" +
		"telemetry:\n" +
		"  driver: sqlite\n" +
		"  path: " + filepath.Join(dir, "marquee.db") + "\n" +
		"filter:\n" +
		"  presets:\n" +
		"    recent: \"Year >= 2020\"\n" +
		"    classic: \"Year < 2010\"\n" +
		"logging:\n" +
		"  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestSearchRecordsAndTrending(t *testing.T) {
	server := newCatalogServer(t)
	cfgPath := writeTestConfig(t, server.URL)

	out, err := runCLI(t, "--config", cfgPath, "search", "Avatar")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 movies")
	assert.Contains(t, out, "Avatar (2009)")

	_, err = runCLI(t, "--config", cfgPath, "search", "Avatar")
	require.NoError(t, err)

	out, err = runCLI(t, "--config", cfgPath, "trending")
	require.NoError(t, err)
	assert.Contains(t, out, "Avatar (Avatar, 2 searches)")

	out, err = runCLI(t, "--config", cfgPath, "search", "Avatar", "--preset", "recent", "--no-record")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 movies")
	assert.Contains(t, out, "The Way of Water")

	out, err = runCLI(t, "--config", cfgPath, "home")
	require.NoError(t, err)
	assert.Contains(t, out, "Trending searches")
	assert.Contains(t, out, "Dune (2021)")
}

func TestSearchAllPresets(t *testing.T) {
	server := newCatalogServer(t)
	cfgPath := writeTestConfig(t, server.URL)

	out, err := runCLI(t, "--config", cfgPath, "search", "Avatar", "--all-presets", "--no-record")
	require.NoError(t, err)

	classic := strings.Index(out, "[classic]")
	recent := strings.Index(out, "[recent]")
	require.NotEqual(t, -1, classic)
	require.NotEqual(t, -1, recent)
	require.Less(t, classic, recent)
	assert.Contains(t, out[classic:recent], "Avatar (2009)")
	assert.NotContains(t, out[classic:recent], "The Way of Water")
	assert.Contains(t, out[recent:], "Avatar: The Way of Water (2022)")
	assert.NotContains(t, out[recent:], "Avatar (2009)")

	_, err = runCLI(t, "--config", cfgPath, "search", "Avatar", "--all-presets", "--preset", "recent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be combined")

	_, err = runCLI(t, "--config", cfgPath, "search", "Avatar", "--preset", "missing")
	assert.ErrorIs(t, err, filter.ErrUnknownPreset)
}

func TestPresetsCommand(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1")

	out, err := runCLI(t, "--config", cfgPath, "presets")
	require.NoError(t, err)
	assert.Contains(t, out, "classic  Year < 2010\n")
	assert.Contains(t, out, "recent   Year >= 2020\n")
	assert.Less(t, strings.Index(out, "classic"), strings.Index(out, "recent"))
}

func TestSearchFailureSurfaces(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1")

	_, err := runCLI(t, "--config", cfgPath, "search", "Avatar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch movies")

	out, err := runCLI(t, "--config", cfgPath, "trending")
	require.NoError(t, err)
	assert.Contains(t, out, "No trending data available.")
}

func TestCatalogErrorsAreWrappedOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}))
	t.Cleanup(server.Close)
	cfgPath := writeTestConfig(t, server.URL)

	_, err := runCLI(t, "--config", cfgPath, "search", "Avatar")
	require.Error(t, err)
	assert.Equal(t, "failed to fetch movies: catalog request failed: 401 Unauthorized", err.Error())

	_, err = runCLI(t, "--config", cfgPath, "details", "19995")
	require.Error(t, err)
	assert.Equal(t, "failed to fetch movie details: catalog request failed: 401 Unauthorized", err.Error())
}

func TestNewTelemetryStore(t *testing.T) {
	s, closeFn, err := newTelemetryStore(config.TelemetryConfig{Driver: config.DriverMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &telemetry.MemoryStore{}, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = newTelemetryStore(config.TelemetryConfig{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "t.db"),
		CollectionID: "metrics",
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &telemetry.SQLiteStore{}, s)
	assert.NoError(t, closeFn())

	s, _, err = newTelemetryStore(config.TelemetryConfig{Driver: config.DriverREST}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &telemetry.RESTStore{}, s)

	_, _, err = newTelemetryStore(config.TelemetryConfig{Driver: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestPrintTrending(t *testing.T) {
	var buf bytes.Buffer
	printTrending(&buf, nil, false)
	assert.Equal(t, "No trending data available.\n", buf.String())

	buf.Reset()
	printTrending(&buf, []telemetry.TrendingEntry{}, true)
	assert.Equal(t, "No trending data available.\n", buf.String())

	buf.Reset()
	printTrending(&buf, []telemetry.TrendingEntry{{SearchTerm: "dune", Title: "Dune", Count: 3}}, true)
	assert.Contains(t, buf.String(), " 1. dune (Dune, 3 searches)")
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "marquee v1.2.3 (built today)", versionString("v1.2.3", "today"))
	assert.Equal(t, "marquee v2.0.0-rc.1 (built x) [pre-release]", versionString("2.0.0-rc.1", "x"))
	assert.Equal(t, "marquee dev (development build, built unknown)", versionString("dev", "unknown"))
}
