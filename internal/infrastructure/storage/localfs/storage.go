package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

// Storage resolves local source references. Relative references are joined to
// basePath when one is set, otherwise they are resolved against the working dir.
type Storage struct {
	basePath string
}

func New(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

func (s *Storage) resolve(path string) string {
	if s.basePath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.basePath, path)
}

// Exists reports whether path names an existing filesystem entity.
func (s *Storage) Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(s.resolve(path))
	return err == nil
}

func (s *Storage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(path))
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnreadableSource, "open file", err)
	}
	return f, nil
}

func (s *Storage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	reader, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnreadableSource, "read file", fmt.Errorf("%s: %w", path, err))
	}
	return raw, nil
}
