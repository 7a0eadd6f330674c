package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrContainerExists = errors.New("container already exists")
	ErrObjectNotFound  = errors.New("object not found")
	ErrInvalidKey      = errors.New("invalid object key")
)

// Container is a bucket of blobs.
type Container struct {
	Name   string
	Public bool
}

// Object is a stored blob as returned by List.
type Object struct {
	Name string
	Size int64
}

// BlobStore is the object-storage half of the backend.
type BlobStore interface {
	ListContainers(ctx context.Context) ([]Container, error)
	// CreateContainer returns ErrContainerExists when name is taken.
	CreateContainer(ctx context.Context, name string, public bool) error

	// Put stores data under key without overwriting and returns its public URL.
	Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, container, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, container string, keys []string) error
	List(ctx context.Context, container string) ([]Object, error)

	PublicURL(container, key string) string
}

// VisibilitySetter is implemented by stores that can (re)apply public read
// access to an existing container.
type VisibilitySetter interface {
	SetPublic(ctx context.Context, container string) error
}

// EnsureContainer creates the container when it is missing. Losing a create
// race to another request counts as success. created is true only when this
// call made the container.
func EnsureContainer(ctx context.Context, bs BlobStore, name string, public bool) (created bool, err error) {
	containers, err := bs.ListContainers(ctx)
	if err != nil {
		return false, fmt.Errorf("list containers: %w", err)
	}
	for _, c := range containers {
		if c.Name == name {
			return false, nil
		}
	}

	if err := bs.CreateContainer(ctx, name, public); err != nil {
		if errors.Is(err, ErrContainerExists) {
			return false, nil
		}
		return false, fmt.Errorf("create container %s: %w", name, err)
	}
	return true, nil
}
