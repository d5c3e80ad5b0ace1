package cached

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"textdocs/internal/logger"
	"textdocs/internal/model"
	"textdocs/internal/repository"
)

const keyPrefix = "textdocs:file:"

// tombstone marks a deleted id. It is never valid JSON, so it cannot be
// mistaken for a cached document.
var tombstone = []byte("\x00deleted")

// DocumentRepository decorates another repository with a read-through cache for FindByID.
// Cache failures are logged and the call falls through to the wrapped store.
// Delete leaves a tombstone for one TTL; fills never overwrite an existing key,
// so a read that started before a delete cannot re-cache the removed document.
type DocumentRepository struct {
	next    repository.DocumentRepository
	cache   Cache
	ttl     time.Duration
	lookups *prometheus.CounterVec
}

// New wraps next. The lookup counter is registered on reg; pass nil to skip registration.
func New(next repository.DocumentRepository, cache Cache, ttl time.Duration, reg prometheus.Registerer) *DocumentRepository {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Document cache lookups by result.",
	}, []string{"result"})
	if reg != nil {
		if err := reg.Register(lookups); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				lookups = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return &DocumentRepository{next: next, cache: cache, ttl: ttl, lookups: lookups}
}

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

func cacheKey(id string) string { return keyPrefix + id }

func (r *DocumentRepository) Create(ctx context.Context, in model.DocumentInput) (*model.Document, error) {
	return r.next.Create(ctx, in)
}

func (r *DocumentRepository) List(ctx context.Context) ([]model.DocumentMetadata, error) {
	return r.next.List(ctx)
}

func (r *DocumentRepository) SearchContent(ctx context.Context, term string) ([]model.DocumentMetadata, error) {
	return r.next.SearchContent(ctx, term)
}

func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// FindByID serves from the cache when possible and fills it on a miss.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	log := logger.FromContext(ctx)
	key := cacheKey(id)

	b, err := r.cache.Get(ctx, key)
	switch {
	case err == nil && bytes.Equal(b, tombstone):
		r.lookups.WithLabelValues("hit").Inc()
		return nil, repository.ErrNotFound
	case err == nil:
		var doc model.Document
		if jerr := json.Unmarshal(b, &doc); jerr == nil {
			r.lookups.WithLabelValues("hit").Inc()
			return &doc, nil
		}
		r.lookups.WithLabelValues("error").Inc()
		log.Warn("cache_decode_failed", zap.String("key", key))
	case errors.Is(err, ErrCacheMiss):
		r.lookups.WithLabelValues("miss").Inc()
	default:
		r.lookups.WithLabelValues("error").Inc()
		log.Warn("cache_get_failed", zap.String("key", key), zap.Error(err))
	}

	doc, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(doc); err == nil {
		if _, err := r.cache.SetNX(ctx, key, b, r.ttl); err != nil {
			log.Warn("cache_set_failed", zap.String("key", key), zap.Error(err))
		}
	}
	return doc, nil
}

// Delete removes the document from the store, then replaces any cached copy with a tombstone.
func (r *DocumentRepository) Delete(ctx context.Context, id string) (*model.Document, error) {
	doc, err := r.next.Delete(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if cerr := r.cache.Set(ctx, cacheKey(id), tombstone, r.ttl); cerr != nil {
		logger.FromContext(ctx).Warn("cache_tombstone_failed", zap.String("key", cacheKey(id)), zap.Error(cerr))
	}
	return doc, err
}
