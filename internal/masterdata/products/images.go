package products

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilesystemImageStore writes uploaded images under a base directory.
type FilesystemImageStore struct {
	baseDir string
}

func NewFilesystemImageStore(baseDir string) *FilesystemImageStore {
	return &FilesystemImageStore{baseDir: baseDir}
}

var _ ImageStore = (*FilesystemImageStore)(nil)

// Save stores the upload as <code>-<timestamp><ext> and returns the
// relative path for serving.
func (s *FilesystemImageStore) Save(productCode string, filename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%d%s", sanitizeCode(productCode), time.Now().UnixNano(), ext)
	dst, err := os.Create(filepath.Join(s.baseDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a previously stored image. Missing files are treated
// as already removed.
func (s *FilesystemImageStore) Remove(path string) error {
	if path == "" || strings.Contains(path, "..") || strings.ContainsRune(path, os.PathSeparator) {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sanitizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(code) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "product"
	}
	return b.String()
}
