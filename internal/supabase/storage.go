package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"tweestoelen/internal/storage"
)

// listPageSize is the largest page the storage list endpoint hands out.
const listPageSize = 1000

// Storage serves storage.BlobStore over the Supabase Storage API.
type Storage struct {
	c *Client
}

func NewStorage(c *Client) *Storage {
	return &Storage{c: c}
}

type bucket struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

func (s *Storage) ListContainers(ctx context.Context) ([]storage.Container, error) {
	var buckets []bucket
	if err := s.c.do(ctx, request{method: http.MethodGet, path: "/storage/v1/bucket"}, &buckets); err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	out := make([]storage.Container, 0, len(buckets))
	for _, b := range buckets {
		name := b.Name
		if name == "" {
			name = b.ID
		}
		out = append(out, storage.Container{Name: name, Public: b.Public})
	}
	return out, nil
}

func (s *Storage) CreateContainer(ctx context.Context, name string, public bool) error {
	body, err := jsonBody(bucket{ID: name, Name: name, Public: public})
	if err != nil {
		return err
	}
	err = s.c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/storage/v1/bucket",
		body:        body,
		contentType: "application/json",
	}, nil)
	if err != nil {
		if isAlreadyExists(err) {
			return storage.ErrContainerExists
		}
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	return nil
}

// SetPublic flips an existing bucket to public reads.
func (s *Storage) SetPublic(ctx context.Context, container string) error {
	body, err := jsonBody(map[string]any{"public": true})
	if err != nil {
		return err
	}
	err = s.c.do(ctx, request{
		method:      http.MethodPut,
		path:        "/storage/v1/bucket/" + url.PathEscape(container),
		body:        body,
		contentType: "application/json",
	}, nil)
	if err != nil {
		return fmt.Errorf("make bucket %s public: %w", container, err)
	}
	return nil
}

func (s *Storage) Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	err := s.c.do(ctx, request{
		method:      http.MethodPost,
		path:        objectPath(container, key),
		body:        data,
		contentType: contentType,
		header: http.Header{
			"Cache-Control": {"max-age=3600"},
			"X-Upsert":      {"false"},
		},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.PublicURL(container, key), nil
}

func (s *Storage) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.c.do(ctx, request{method: http.MethodGet, path: objectPath(container, key)}, &data)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Code == "404") {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes keys in one call. Keys that do not exist are ignored by the
// API.
func (s *Storage) Delete(ctx context.Context, container string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	body, err := jsonBody(map[string]any{"prefixes": keys})
	if err != nil {
		return err
	}
	err = s.c.do(ctx, request{
		method:      http.MethodDelete,
		path:        "/storage/v1/object/" + url.PathEscape(container),
		body:        body,
		contentType: "application/json",
	}, nil)
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	return nil
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type listedObject struct {
	Name     string         `json:"name"`
	ID       *string        `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Storage) List(ctx context.Context, container string) ([]storage.Object, error) {
	var out []storage.Object
	for offset := 0; ; offset += listPageSize {
		body, err := jsonBody(listRequest{Limit: listPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		var page []listedObject
		err = s.c.do(ctx, request{
			method:      http.MethodPost,
			path:        "/storage/v1/object/list/" + url.PathEscape(container),
			body:        body,
			contentType: "application/json",
			idempotent:  true,
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, o := range page {
			// folders come back without an id
			if o.ID == nil {
				continue
			}
			var size int64
			if v, ok := o.Metadata["size"].(float64); ok {
				size = int64(v)
			}
			out = append(out, storage.Object{Name: o.Name, Size: size})
		}
		if len(page) < listPageSize {
			return out, nil
		}
	}
}

func (s *Storage) PublicURL(container, key string) string {
	return s.c.baseURL + "/storage/v1/object/public/" + url.PathEscape(container) + "/" + url.PathEscape(key)
}

func objectPath(container, key string) string {
	return "/storage/v1/object/" + url.PathEscape(container) + "/" + url.PathEscape(key)
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.Contains(key, "/") {
		return fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusConflict || apiErr.Code == "409" || apiErr.Code == "Duplicate" {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already exists")
}
