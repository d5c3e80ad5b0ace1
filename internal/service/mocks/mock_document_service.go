package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"textdocs/internal/model"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) UploadBatch(ctx context.Context, items []model.DocumentInput) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) Search(ctx context.Context, term string) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) GetContent(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Remove(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentMetadata), args.Error(1)
}
