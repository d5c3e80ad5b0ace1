package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"textdocs/internal/model"
	"textdocs/internal/repository"
	"textdocs/internal/storage"
)

const keyPrefix = "files/"

var (
	newID = uuid.NewString
	now   = func() time.Time { return time.Now().UTC() }
)

// DocumentObjectStore keeps one JSON object per document in an S3-compatible bucket.
// Listing and search read every object; reads fan out over a bounded worker pool.
type DocumentObjectStore struct {
	store   storage.Storage
	workers int
}

// NewDocumentObjectStore creates a repository on top of store.
// workers bounds concurrent object reads during list and search.
func NewDocumentObjectStore(store storage.Storage, workers int) *DocumentObjectStore {
	if workers <= 0 {
		workers = 8
	}
	return &DocumentObjectStore{store: store, workers: workers}
}

var _ repository.DocumentRepository = (*DocumentObjectStore)(nil)

func objectKey(id string) string {
	return keyPrefix + id + ".json"
}

// Create writes the document as a new object keyed by a fresh UUID.
func (r *DocumentObjectStore) Create(ctx context.Context, in model.DocumentInput) (*model.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	doc := model.NewDocument(in, newID(), now())

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	_, err = r.store.Put(ctx, objectKey(doc.ID), bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata: map[string]string{
			"original-filename": doc.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &doc, nil
}

// List returns metadata for every stored document, oldest first.
func (r *DocumentObjectStore) List(ctx context.Context) ([]model.DocumentMetadata, error) {
	return r.scan(ctx, func(model.Document) bool { return true })
}

// FindByID reads a single document object.
func (r *DocumentObjectStore) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	doc, err := r.read(ctx, objectKey(id))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, repository.ErrNotFound
	}
	return doc, err
}

// SearchContent reads every object and keeps those whose content contains term, ignoring case.
func (r *DocumentObjectStore) SearchContent(ctx context.Context, term string) ([]model.DocumentMetadata, error) {
	if term == "" {
		return r.List(ctx)
	}
	needle := strings.ToLower(term)
	return r.scan(ctx, func(d model.Document) bool {
		return strings.Contains(strings.ToLower(d.Content), needle)
	})
}

// Delete reads the document, then removes its object.
func (r *DocumentObjectStore) Delete(ctx context.Context, id string) (*model.Document, error) {
	doc, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.Delete(ctx, objectKey(id)); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("delete object: %w", err)
	}
	return doc, nil
}

// Ping checks the bucket.
func (r *DocumentObjectStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *DocumentObjectStore) read(ctx context.Context, key string) (*model.Document, error) {
	rc, _, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc model.Document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &doc, nil
}

func (r *DocumentObjectStore) scan(ctx context.Context, keep func(model.Document) bool) ([]model.DocumentMetadata, error) {
	objects, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	docs := make([]*model.Document, len(objects))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i, obj := range objects {
		if path.Ext(obj.Key) != ".json" {
			continue
		}
		eg.Go(func() error {
			doc, err := r.read(gctx, obj.Key)
			if errors.Is(err, storage.ErrObjectNotFound) {
				// deleted after listing
				return nil
			}
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	items := make([]model.DocumentMetadata, 0, len(docs))
	for _, d := range docs {
		if d != nil && keep(*d) {
			items = append(items, d.Metadata())
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UploadDate.Equal(items[j].UploadDate) {
			return items[i].UploadDate.Before(items[j].UploadDate)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}
