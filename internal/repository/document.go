package repository

import (
	"context"
	"errors"

	"textdocs/internal/model"
)

// ErrNotFound is returned by lookups and deletes when no document matches the id.
// Implementations return it for malformed ids too, so callers have one path to handle.
var ErrNotFound = errors.New("document not found")

// DocumentRepository defines durable persistence for documents.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create validates in, assigns an id and an upload date (if absent),
	// persists the record and returns it as stored.
	Create(ctx context.Context, in model.DocumentInput) (*model.Document, error)

	// List returns metadata for every stored document, oldest first.
	List(ctx context.Context) ([]model.DocumentMetadata, error)

	// FindByID returns the full document, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// SearchContent returns metadata for documents whose content contains term,
	// ignoring case. An empty term matches every document.
	SearchContent(ctx context.Context, term string) ([]model.DocumentMetadata, error)

	// Delete removes a document and returns it, or ErrNotFound.
	Delete(ctx context.Context, id string) (*model.Document, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
