package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("file not found")

// Store persists uploaded document payloads under opaque stored names.
type Store interface {
	// Save writes data and returns the stored name to keep in metadata.
	Save(ctx context.Context, data []byte) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
}

// NameGenerator produces opaque stored names.
type NameGenerator func() string

// DiskStore keeps payloads as flat files under a root directory.
type DiskStore struct {
	root         string
	generateName NameGenerator
}

// NewDiskStore creates a disk-backed file store rooted at dir, creating the
// directory if needed.
func NewDiskStore(dir string, generator NameGenerator) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &DiskStore{root: dir, generateName: generator}, nil
}

func (d *DiskStore) Save(_ context.Context, data []byte) (string, error) {
	name := d.generateName() + ".pdf"

	if err := os.WriteFile(filepath.Join(d.root, name), data, 0o640); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}

	return name, nil
}

func (d *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := d.resolve(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return f, nil
}

func (d *DiskStore) Remove(_ context.Context, name string) error {
	path, err := d.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}

		return err
	}

	return nil
}

// resolve refuses names that would escape the root directory.
func (d *DiskStore) resolve(name string) (string, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "\\") || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid stored name %q", name)
	}

	return filepath.Join(d.root, name), nil
}
