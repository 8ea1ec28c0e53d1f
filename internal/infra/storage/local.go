package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	repo "storefront/internal/repository"
)

// dir配下に保存し、"images/<name>" を返す（/static/images で配信）
type LocalImageStorage struct {
	dir      string
	maxBytes int64
}

func NewLocalImageStorage(dir string, maxBytes int64) (*LocalImageStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalImageStorage{dir: dir, maxBytes: maxBytes}, nil
}

var _ repo.ImageStorage = (*LocalImageStorage)(nil)

func (s *LocalImageStorage) Dir() string {
	return s.dir
}

func (s *LocalImageStorage) Save(ctx context.Context, filename string, contentType string, r io.Reader) (string, error) {
	name, err := ObjectName(filename, contentType)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r, s.maxBytes)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return "images/" + name, nil
}
