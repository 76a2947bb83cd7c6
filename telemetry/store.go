package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrInvalidConfig indicates a required store setting is missing
	ErrInvalidConfig = errors.New("invalid telemetry store configuration")
	// ErrNotFound indicates the document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrConflict indicates the document id or a unique field already exists
	ErrConflict = errors.New("document already exists")
)

// Document is a stored field map together with its identifier
type Document struct {
	ID     string
	Fields map[string]any
}

// Query selects documents from a collection
type Query struct {
	// Equal restricts results to documents whose fields equal the given values
	Equal map[string]any
	// OrderDesc sorts results by the named numeric field, highest first
	OrderDesc string
	// Limit caps the number of results; 0 means no limit
	Limit int
}

// Store defines the document operations the telemetry components rely on
type Store interface {
	// ListDocuments returns documents matching q
	ListDocuments(ctx context.Context, q Query) ([]Document, error)

	// CreateDocument stores a new document under id
	CreateDocument(ctx context.Context, id string, fields map[string]any) (Document, error)

	// UpdateDocument merges fields into the document identified by id
	UpdateDocument(ctx context.Context, id string, fields map[string]any) (Document, error)
}

// Incrementer is implemented by stores that can add to a numeric field atomically
type Incrementer interface {
	// IncrementDocument adds delta to field, treating a missing value as 0
	IncrementDocument(ctx context.Context, id, field string, delta int) (Document, error)
}

// Pinger is implemented by stores that can verify connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIError represents a non-success response from the document REST API
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("document store error: status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("document store error: status %d: %s", e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
