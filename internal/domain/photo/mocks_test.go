package photo

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"tweestoelen/internal/storage"
)

/* -------- Store -------- */

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Select(ctx context.Context, q Query) ([]Photo, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Photo), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, p *Photo) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) Update(ctx context.Context, filters []Filter, fields map[string]any) ([]Photo, error) {
	args := m.Called(ctx, filters, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Photo), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, filters []Filter) error {
	return m.Called(ctx, filters).Error(0)
}

/* -------- BlobStore -------- */

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) ListContainers(ctx context.Context) ([]storage.Container, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Container), args.Error(1)
}

func (m *MockBlobStore) CreateContainer(ctx context.Context, name string, public bool) error {
	return m.Called(ctx, name, public).Error(0)
}

func (m *MockBlobStore) Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, container, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, container, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, container string, keys []string) error {
	return m.Called(ctx, container, keys).Error(0)
}

func (m *MockBlobStore) List(ctx context.Context, container string) ([]storage.Object, error) {
	args := m.Called(ctx, container)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Object), args.Error(1)
}

func (m *MockBlobStore) PublicURL(container, key string) string {
	return m.Called(container, key).String(0)
}
