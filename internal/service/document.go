package service

import (
	"context"
	"errors"
	"fmt"

	"textdocs/internal/model"
	"textdocs/internal/repository"
)

var (
	ErrNotFound   = errors.New("file not found")
	ErrEmptyBatch = errors.New("no files provided")
)

// BatchError reports an upload that stopped part-way. Documents listed in Created
// were persisted before the item at FailedIndex failed.
type BatchError struct {
	Created     []model.DocumentMetadata
	FailedIndex int
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("files[%d]: %v (%d saved)", e.FailedIndex, e.Err, len(e.Created))
}

func (e *BatchError) Unwrap() error { return e.Err }

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// UploadBatch validates every item, then stores them one at a time in input order.
	// Metadata is returned in the same order.
	UploadBatch(ctx context.Context, items []model.DocumentInput) ([]model.DocumentMetadata, error)

	// List returns metadata for every document.
	List(ctx context.Context) ([]model.DocumentMetadata, error)

	// Search returns metadata for documents whose content contains term, ignoring case.
	// An empty term behaves like List.
	Search(ctx context.Context, term string) ([]model.DocumentMetadata, error)

	// GetContent returns the full document including its content.
	GetContent(ctx context.Context, id string) (*model.Document, error)

	// Remove deletes a document permanently and returns what was removed.
	Remove(ctx context.Context, id string) (*model.DocumentMetadata, error)
}

type documentService struct {
	repo repository.DocumentRepository
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(repo repository.DocumentRepository) DocumentService {
	return &documentService{repo: repo}
}

func (s *documentService) UploadBatch(ctx context.Context, items []model.DocumentInput) ([]model.DocumentMetadata, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, in := range items {
		if err := in.Validate(); err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				return nil, &model.ValidationError{Index: i, Field: ve.Field}
			}
			return nil, err
		}
	}

	created := make([]model.DocumentMetadata, 0, len(items))
	for i, in := range items {
		doc, err := s.repo.Create(ctx, in)
		if err != nil {
			return nil, &BatchError{Created: created, FailedIndex: i, Err: err}
		}
		created = append(created, doc.Metadata())
	}
	return created, nil
}

func (s *documentService) List(ctx context.Context) ([]model.DocumentMetadata, error) {
	return s.repo.List(ctx)
}

func (s *documentService) Search(ctx context.Context, term string) ([]model.DocumentMetadata, error) {
	if term == "" {
		return s.repo.List(ctx)
	}
	return s.repo.SearchContent(ctx, term)
}

func (s *documentService) GetContent(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Remove(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	doc, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	meta := doc.Metadata()
	return &meta, nil
}
