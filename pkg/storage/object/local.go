// Package object publishes run artifacts to a local or mounted directory.
package object

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// Scheme is the URI scheme handled by LocalStorage.
const Scheme = "file"

// LocalStorage copies artifacts into <root>/<runID>/<file>.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a new local filesystem storage.
func NewLocalStorage(root string) (*LocalStorage, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}

	return &LocalStorage{root: absRoot}, nil
}

// ParseURI turns file:///dir (or a bare path) into a directory.
func ParseURI(uri string) (string, bool) {
	if rest, ok := strings.CutPrefix(uri, Scheme+"://"); ok {
		return rest, rest != ""
	}
	if strings.Contains(uri, "://") {
		return "", false
	}
	return uri, uri != ""
}

// Root returns the absolute publish directory.
func (s *LocalStorage) Root() string {
	return s.root
}

// Publish copies every file and returns file:// URIs for the copies.
func (s *LocalStorage) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	var (
		uris []string
		errs aderrors.MultiError
	)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			errs.Add(err)
			break
		}

		dst := filepath.Join(s.root, runID, filepath.Base(file))
		if err := s.put(file, dst); err != nil {
			errs.Add(err)
			continue
		}
		uri := Scheme + "://" + filepath.ToSlash(dst)
		log.Printf("[publish] %s -> %s", file, uri)
		uris = append(uris, uri)
	}

	if err := errs.Combined(); err != nil {
		return uris, aderrors.Wrapf(err, aderrors.CodePublishFailed, "publish failed (%d of %d uploaded)", len(uris), len(files)).
			WithContext("run_id", runID)
	}
	return uris, nil
}

// put writes src to dst through a temp file so readers never see a partial copy.
func (s *LocalStorage) put(src, dst string) error {
	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".publish-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	return os.Rename(tmp.Name(), dst)
}
