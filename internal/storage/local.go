package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local keeps each container as a directory under basePath. Files are
// expected to be served by the HTTP layer under baseURL.
type Local struct {
	basePath string
	baseURL  string
}

func NewLocal(basePath, baseURL string) (*Local, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local storage needs a base path")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Local{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// BasePath is the directory holding the containers.
func (s *Local) BasePath() string { return s.basePath }

func (s *Local) ListContainers(ctx context.Context) ([]Container, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}
	var out []Container
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, Container{Name: e.Name(), Public: true})
		}
	}
	return out, nil
}

func (s *Local) CreateContainer(ctx context.Context, name string, public bool) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Mkdir(filepath.Join(s.basePath, name), 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrContainerExists
		}
		return fmt.Errorf("create container directory: %w", err)
	}
	return nil
}

func (s *Local) Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error) {
	path, err := s.objectPath(container, key)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close object: %w", err)
	}
	return s.PublicURL(container, key), nil
}

func (s *Local) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	path, err := s.objectPath(container, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// Delete ignores keys that are already gone.
func (s *Local) Delete(ctx context.Context, container string, keys []string) error {
	var errs []error
	for _, key := range keys {
		path, err := s.objectPath(container, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Local) List(ctx context.Context, container string) ([]Object, error) {
	if err := checkName(container); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.basePath, container))
	if err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}
	out := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Object{Name: e.Name(), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Local) PublicURL(container, key string) string {
	return s.baseURL + "/" + container + "/" + key
}

func (s *Local) objectPath(container, key string) (string, error) {
	if err := checkName(container); err != nil {
		return "", err
	}
	if err := checkName(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, container, key), nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return nil
}
