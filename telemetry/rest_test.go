package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocumentsPath = "/v1/databases/db1/collections/metrics/documents"

// fakeDocumentAPI serves a tiny subset of the document REST API backed by a MemoryStore
type fakeDocumentAPI struct {
	t     *testing.T
	store *MemoryStore
	mu    sync.Mutex
	seen  []*http.Request
}

func (f *fakeDocumentAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.seen = append(f.seen, r)
	f.mu.Unlock()

	assert.Equal(f.t, "project-1", r.Header.Get("X-Appwrite-Project"))
	assert.Equal(f.t, "secret", r.Header.Get("X-Appwrite-Key"))

	ctx := r.Context()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == testDocumentsPath:
		q, err := parseRESTQueries(r.URL.Query()["queries[]"])
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "general_query_invalid", err.Error())
			return
		}
		docs, _ := f.store.ListDocuments(ctx, q)
		out := make([]map[string]any, 0, len(docs))
		for _, d := range docs {
			out = append(out, toRESTDocument(d))
		}
		json.NewEncoder(w).Encode(map[string]any{"total": len(out), "documents": out})

	case r.Method == http.MethodPost && r.URL.Path == testDocumentsPath:
		assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
		var body writeRequest
		if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		doc, err := f.store.CreateDocument(ctx, body.DocumentID, body.Data)
		if err != nil {
			writeAPIError(w, http.StatusConflict, "document_already_exists", "Document with the requested ID already exists.")
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(toRESTDocument(doc))

	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, testDocumentsPath+"/"):
		id := strings.TrimPrefix(r.URL.Path, testDocumentsPath+"/")
		var body writeRequest
		if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		doc, err := f.store.UpdateDocument(ctx, id, body.Data)
		if err != nil {
			writeAPIError(w, http.StatusNotFound, "document_not_found", "Document with the requested ID could not be found.")
			return
		}
		json.NewEncoder(w).Encode(toRESTDocument(doc))

	default:
		writeAPIError(w, http.StatusNotFound, "general_route_not_found", "route not found")
	}
}

func parseRESTQueries(raw []string) (Query, error) {
	q := Query{Equal: map[string]any{}}
	for _, s := range raw {
		var rq restQuery
		if err := json.Unmarshal([]byte(s), &rq); err != nil {
			return Query{}, err
		}
		switch rq.Method {
		case "equal":
			q.Equal[rq.Attribute] = rq.Values[0]
		case "orderDesc":
			q.OrderDesc = rq.Attribute
		case "limit":
			q.Limit = int(rq.Values[0].(float64))
		}
	}
	return q, nil
}

func toRESTDocument(d Document) map[string]any {
	out := map[string]any{
		"$id":           d.ID,
		"$collectionId": "metrics",
		"$databaseId":   "db1",
		"$createdAt":    "2025-01-01T00:00:00.000+00:00",
	}
	for k, v := range d.Fields {
		out[k] = v
	}
	return out
}

func writeAPIError(w http.ResponseWriter, status int, typ, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: msg, Code: status, Type: typ})
}

func newTestRESTStore(t *testing.T) (*RESTStore, *fakeDocumentAPI) {
	t.Helper()
	api := &fakeDocumentAPI{t: t, store: NewMemoryStore()}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	store := NewRESTStore(RESTConfig{
		Endpoint:     server.URL + "/v1/",
		ProjectID:    "project-1",
		APIKey:       "secret",
		DatabaseID:   "db1",
		CollectionID: "metrics",
	}, zerolog.Nop())
	return store, api
}

func TestRESTStore_CreateListUpdate(t *testing.T) {
	store, _ := newTestRESTStore(t)
	ctx := context.Background()

	created, err := store.CreateDocument(ctx, "doc-1", map[string]any{FieldSearchTerm: "Avatar", FieldCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", created.ID)
	assert.NotContains(t, created.Fields, "$createdAt")

	docs, err := store.ListDocuments(ctx, Query{Equal: map[string]any{FieldSearchTerm: "Avatar"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, float64(1), docs[0].Fields[FieldCount])

	updated, err := store.UpdateDocument(ctx, "doc-1", map[string]any{FieldCount: 2})
	require.NoError(t, err)
	record, err := DecodeRecord(updated)
	require.NoError(t, err)
	assert.Equal(t, 2, record.Count)
}

func TestRESTStore_QueryEncoding(t *testing.T) {
	store, api := newTestRESTStore(t)

	_, err := store.ListDocuments(context.Background(), Query{
		Equal:     map[string]any{FieldSearchTerm: "the matrix"},
		OrderDesc: FieldCount,
		Limit:     5,
	})
	require.NoError(t, err)

	require.Len(t, api.seen, 1)
	queries := api.seen[0].URL.Query()["queries[]"]
	assert.Equal(t, []string{
		`{"method":"equal","attribute":"searchTerm","values":["the matrix"]}`,
		`{"method":"orderDesc","attribute":"count"}`,
		`{"method":"limit","values":[5]}`,
	}, queries)
}

func TestRESTStore_Errors(t *testing.T) {
	store, _ := newTestRESTStore(t)
	ctx := context.Background()

	_, err := store.CreateDocument(ctx, "dup", map[string]any{FieldSearchTerm: "x"})
	require.NoError(t, err)

	_, err = store.CreateDocument(ctx, "dup", map[string]any{FieldSearchTerm: "y"})
	assert.ErrorIs(t, err, ErrConflict)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "document_already_exists", apiErr.Type)

	_, err = store.UpdateDocument(ctx, "missing", map[string]any{FieldCount: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	unconfigured := NewRESTStore(RESTConfig{Endpoint: "http://localhost"}, zerolog.Nop())
	_, err = unconfigured.ListDocuments(ctx, Query{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "project_id")
}

func TestRESTStore_DocumentWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":1,"documents":[{"searchTerm":"x","count":1}]}`))
	}))
	defer server.Close()

	store := NewRESTStore(RESTConfig{
		Endpoint: server.URL, ProjectID: "p", DatabaseID: "d", CollectionID: "c",
	}, zerolog.Nop())

	_, err := store.ListDocuments(context.Background(), Query{})
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestRESTStore_TimeoutKeepsSuppliedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	store := NewRESTStore(RESTConfig{Endpoint: "http://localhost"}, zerolog.Nop(),
		WithRESTHTTPClient(shared), WithRESTTimeout(5*time.Second))

	assert.Equal(t, 5*time.Second, store.httpClient.Timeout)
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.NotSame(t, shared, store.httpClient)

	store = NewRESTStore(RESTConfig{Endpoint: "http://localhost"}, zerolog.Nop(), WithRESTHTTPClient(shared))
	assert.Same(t, shared, store.httpClient)
}

func TestRESTStore_WithRecorderAndTrending(t *testing.T) {
	store, _ := newTestRESTStore(t)
	ctx := context.Background()
	recorder := NewRecorder(store, zerolog.Nop())

	recorder.RecordSearch(ctx, "Avatar", avatar)
	recorder.RecordSearch(ctx, "Avatar", avatar)
	recorder.RecordSearch(ctx, "Dune", avatar)

	entries, ok := NewTrending(store, zerolog.Nop()).Top(ctx, 5)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, "Avatar", entries[0].SearchTerm)
	assert.Equal(t, 2, entries[0].Count)
	assert.Equal(t, 19995, entries[0].MovieID)
	assert.Equal(t, 1, entries[1].Count)
}
