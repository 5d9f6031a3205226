// Package storage holds product image assets. The catalog service only
// ever hands it opaque byte streams and asset references; it never
// inspects file contents itself.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shopfront/catalog/apperrors"
)

// Storage abstracts where uploaded assets live.
type Storage interface {
	// Store writes the asset and returns its reference. hint is the
	// original filename; only its extension is kept.
	Store(ctx context.Context, r io.Reader, size int64, hint string) (string, error)
	// Remove deletes a previously stored asset. Removing a reference that
	// no longer exists is not an error.
	Remove(ctx context.Context, ref string) error
}

// assetKey builds a collision-free reference under prefix, keeping the
// original extension.
func assetKey(prefix, hint string) string {
	ext := strings.ToLower(path.Ext(hint))
	return path.Join(prefix, uuid.NewString()+ext)
}

// Disk stores assets under a local public directory, the same layout the
// application served uploads from before object storage existed.
type Disk struct {
	root string
}

// NewDisk creates the root directory if needed.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) Store(ctx context.Context, r io.Reader, size int64, hint string) (string, error) {
	ref := assetKey("products", hint)
	full := filepath.Join(d.root, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", apperrors.Upstream("failed to store asset", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", apperrors.Upstream("failed to store asset", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return "", apperrors.Upstream("failed to store asset", err)
	}
	return ref, nil
}

func (d *Disk) Remove(ctx context.Context, ref string) error {
	err := os.Remove(filepath.Join(d.root, filepath.FromSlash(ref)))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Upstream("failed to remove asset", err)
	}
	return nil
}
