package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RESTConfig holds the connection details of a document REST API
type RESTConfig struct {
	Endpoint     string
	ProjectID    string
	APIKey       string
	DatabaseID   string
	CollectionID string
}

// RESTStore implements Store against an Appwrite-compatible document API
type RESTStore struct {
	cfg        RESTConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// RESTOption configures a RESTStore
type RESTOption func(*RESTStore)

// WithRESTHTTPClient replaces the underlying HTTP client
func WithRESTHTTPClient(httpClient *http.Client) RESTOption {
	return func(s *RESTStore) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

// WithRESTTimeout sets the HTTP client timeout on a copy of the current client
func WithRESTTimeout(timeout time.Duration) RESTOption {
	return func(s *RESTStore) {
		if timeout > 0 {
			httpClient := *s.httpClient
			httpClient.Timeout = timeout
			s.httpClient = &httpClient
		}
	}
}

// NewRESTStore creates a REST-backed store. Missing settings are reported by
// the first request.
func NewRESTStore(cfg RESTConfig, logger zerolog.Logger, opts ...RESTOption) *RESTStore {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	s := &RESTStore{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// restQuery is one entry of the queries[] parameter
type restQuery struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

type listResponse struct {
	Total     int              `json:"total"`
	Documents []map[string]any `json:"documents"`
}

type writeRequest struct {
	DocumentID string         `json:"documentId,omitempty"`
	Data       map[string]any `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

func (s *RESTStore) validate() error {
	missing := make([]string, 0)
	if s.cfg.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if s.cfg.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if s.cfg.DatabaseID == "" {
		missing = append(missing, "database_id")
	}
	if s.cfg.CollectionID == "" {
		missing = append(missing, "collection_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (s *RESTStore) documentsPath() string {
	return fmt.Sprintf("%s/databases/%s/collections/%s/documents",
		s.cfg.Endpoint, url.PathEscape(s.cfg.DatabaseID), url.PathEscape(s.cfg.CollectionID))
}

// doRequest sends a JSON request and decodes a JSON response into out
func (s *RESTStore) doRequest(ctx context.Context, method, requestURL string, payload, out any) error {
	if err := s.validate(); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Appwrite-Project", s.cfg.ProjectID)
	if s.cfg.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", s.cfg.APIKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var parsed errorResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Message != "" {
			apiErr.Message = parsed.Message
			apiErr.Type = parsed.Type
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Reason: "invalid response body", Err: err}
	}
	return nil
}

// ListDocuments returns documents matching q
func (s *RESTStore) ListDocuments(ctx context.Context, q Query) ([]Document, error) {
	params := url.Values{}
	for _, rq := range buildQueries(q) {
		encoded, err := json.Marshal(rq)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query: %w", err)
		}
		params.Add("queries[]", string(encoded))
	}

	requestURL := s.documentsPath()
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var response listResponse
	if err := s.doRequest(ctx, http.MethodGet, requestURL, nil, &response); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(response.Documents))
	for _, raw := range response.Documents {
		doc, err := documentFromREST(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	s.logger.Debug().Int("count", len(docs)).Msg("Listed documents")
	return docs, nil
}

// CreateDocument stores a new document under id
func (s *RESTStore) CreateDocument(ctx context.Context, id string, fields map[string]any) (Document, error) {
	var raw map[string]any
	payload := writeRequest{DocumentID: id, Data: fields}
	if err := s.doRequest(ctx, http.MethodPost, s.documentsPath(), payload, &raw); err != nil {
		return Document{}, err
	}
	return documentFromREST(raw)
}

// UpdateDocument merges fields into the document identified by id
func (s *RESTStore) UpdateDocument(ctx context.Context, id string, fields map[string]any) (Document, error) {
	var raw map[string]any
	requestURL := s.documentsPath() + "/" + url.PathEscape(id)
	if err := s.doRequest(ctx, http.MethodPatch, requestURL, writeRequest{Data: fields}, &raw); err != nil {
		return Document{}, err
	}
	return documentFromREST(raw)
}

// Ping lists a single document to verify credentials and collection access
func (s *RESTStore) Ping(ctx context.Context) error {
	_, err := s.ListDocuments(ctx, Query{Limit: 1})
	return err
}

// buildQueries renders q in a deterministic order
func buildQueries(q Query) []restQuery {
	queries := make([]restQuery, 0, len(q.Equal)+2)

	keys := make([]string, 0, len(q.Equal))
	for k := range q.Equal {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		queries = append(queries, restQuery{Method: "equal", Attribute: k, Values: []any{q.Equal[k]}})
	}

	if q.OrderDesc != "" {
		queries = append(queries, restQuery{Method: "orderDesc", Attribute: q.OrderDesc})
	}
	if q.Limit > 0 {
		queries = append(queries, restQuery{Method: "limit", Values: []any{q.Limit}})
	}
	return queries
}

// documentFromREST splits system attributes ($id, $createdAt, ...) from fields
func documentFromREST(raw map[string]any) (Document, error) {
	id, ok := raw["$id"].(string)
	if !ok || id == "" {
		return Document{}, &DecodeError{Reason: "document without $id"}
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if strings.HasPrefix(k, "$") {
			continue
		}
		fields[k] = v
	}
	return Document{ID: id, Fields: fields}, nil
}
