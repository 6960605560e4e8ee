package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"payeveryone/internal/domain"
	"payeveryone/internal/port"
)

// LocalStore writes objects under dir and serves them from baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

var _ port.BlobStore = (*LocalStore)(nil)

func (s *LocalStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, progress func(int64)) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: bad object key %q", domain.ErrInvalidInput, key)
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
	}
	defer f.Close()

	src := withProgress(body, progress)
	if size > 0 {
		src = io.LimitReader(src, size)
	}
	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: write %s: %w", domain.ErrStoreFailure, key, err)
	}

	return s.baseURL + "/" + key, nil
}

// Dir is the root directory the HTTP layer serves uploaded files from.
func (s *LocalStore) Dir() string {
	return s.dir
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}
