package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"textdocs/internal/logger"
	"textdocs/internal/model"
	"textdocs/internal/repository"
	repoMocks "textdocs/internal/repository/mocks"
)

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	b, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (c *memCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = val
	return nil
}

func (c *memCache) SetNX(_ context.Context, key string, val []byte, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return false, c.setErr
	}
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = val
	return true, nil
}

func (c *memCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok
}

// gatedRepo blocks FindByID until release is closed.
type gatedRepo struct {
	repoMocks.MockDocumentRepository
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepo) FindByID(ctx context.Context, id string) (*model.Document, error) {
	close(g.entered)
	<-g.release
	return g.MockDocumentRepository.FindByID(ctx, id)
}

const id = "11111111-1111-4111-8111-111111111111"

func sample() *model.Document {
	return &model.Document{ID: id, Name: "a.txt", FileType: "text/plain", Content: "foo", UploadDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestFindByID_ReadThrough(t *testing.T) {
	ctx := context.Background()
	next := new(repoMocks.MockDocumentRepository)
	next.On("FindByID", ctx, id).Return(sample(), nil).Once()
	c := newMemCache()
	r := New(next, c, time.Minute, prometheus.NewRegistry())

	first, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	second, err := r.FindByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, sample(), first)
	assert.Equal(t, sample(), second)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookups.WithLabelValues("hit")))
	next.AssertExpectations(t)
}

func TestFindByID_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	next := new(repoMocks.MockDocumentRepository)
	next.On("FindByID", ctx, id).Return(nil, repository.ErrNotFound).Twice()
	c := newMemCache()
	r := New(next, c, time.Minute, nil)

	_, err := r.FindByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = r.FindByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Empty(t, c.data)
	next.AssertExpectations(t)
}

func TestFindByID_CacheFailureDegrades(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))

	next := new(repoMocks.MockDocumentRepository)
	next.On("FindByID", ctx, id).Return(sample(), nil)
	c := newMemCache()
	c.getErr = errors.New("connection refused")
	c.setErr = errors.New("connection refused")
	r := New(next, c, time.Minute, nil)

	doc, err := r.FindByID(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, sample(), doc)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookups.WithLabelValues("error")))
	assert.Equal(t, 1, logs.FilterMessage("cache_get_failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache_set_failed").Len())
}

func TestFindByID_CorruptEntryFallsThrough(t *testing.T) {
	ctx := context.Background()
	next := new(repoMocks.MockDocumentRepository)
	next.On("FindByID", ctx, id).Return(sample(), nil).Once()
	c := newMemCache()
	c.data[cacheKey(id)] = []byte("{not json")
	r := New(next, c, time.Minute, nil)

	doc, err := r.FindByID(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, sample(), doc)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookups.WithLabelValues("error")))
}

func TestDelete_Evicts(t *testing.T) {
	ctx := context.Background()
	next := new(repoMocks.MockDocumentRepository)
	next.On("FindByID", ctx, id).Return(sample(), nil).Once()
	next.On("Delete", ctx, id).Return(sample(), nil).Once()
	r := New(next, newMemCache(), time.Minute, nil)

	_, err := r.FindByID(ctx, id)
	require.NoError(t, err)

	deleted, err := r.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted.ID)

	_, err = r.FindByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	next.AssertNumberOfCalls(t, "FindByID", 1)
	next.AssertExpectations(t)
}

func TestDelete_ReadInFlightDoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	next := &gatedRepo{entered: make(chan struct{}), release: make(chan struct{})}
	next.On("FindByID", ctx, id).Return(sample(), nil).Once()
	next.On("Delete", ctx, id).Return(sample(), nil).Once()
	c := newMemCache()
	r := New(next, c, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// started before the delete, so it may still see the document
		_, _ = r.FindByID(ctx, id)
	}()
	<-next.entered

	_, err := r.Delete(ctx, id)
	require.NoError(t, err)
	close(next.release)
	<-done

	doc, err := r.FindByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, doc)
	cachedVal, ok := c.get(cacheKey(id))
	require.True(t, ok)
	assert.Equal(t, tombstone, cachedVal)
}

func TestDelete_MissingIDLeavesTombstone(t *testing.T) {
	ctx := context.Background()
	next := new(repoMocks.MockDocumentRepository)
	next.On("Delete", ctx, id).Return(nil, repository.ErrNotFound).Once()
	c := newMemCache()
	r := New(next, c, time.Minute, nil)

	_, err := r.Delete(ctx, id)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	cachedVal, _ := c.get(cacheKey(id))
	assert.Equal(t, tombstone, cachedVal)
}

func TestDelete_StoreErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	next := new(repoMocks.MockDocumentRepository)
	next.On("Delete", ctx, id).Return(nil, errors.New("db down"))
	c := newMemCache()
	c.data[cacheKey(id)] = []byte("{}")
	r := New(next, c, time.Minute, nil)

	_, err := r.Delete(ctx, id)

	assert.EqualError(t, err, "db down")
	assert.Contains(t, c.data, cacheKey(id))
}

func TestPassThrough(t *testing.T) {
	ctx := context.Background()
	next := new(repoMocks.MockDocumentRepository)
	in := model.DocumentInput{Name: "a.txt", FileType: "text/plain", Content: "foo"}
	next.On("Create", ctx, in).Return(sample(), nil)
	next.On("List", ctx).Return([]model.DocumentMetadata{sample().Metadata()}, nil)
	next.On("SearchContent", ctx, "fo").Return([]model.DocumentMetadata{sample().Metadata()}, nil)
	next.On("Ping", ctx).Return(nil)
	r := New(next, newMemCache(), time.Minute, nil)

	_, err := r.Create(ctx, in)
	require.NoError(t, err)
	_, err = r.List(ctx)
	require.NoError(t, err)
	_, err = r.SearchContent(ctx, "fo")
	require.NoError(t, err)
	require.NoError(t, r.Ping(ctx))
	next.AssertExpectations(t)
}

func TestNew_ReusesRegisteredCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(nil, newMemCache(), time.Minute, reg)
	b := New(nil, newMemCache(), time.Minute, reg)

	assert.Same(t, a.lookups, b.lookups)
}
