package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore keeps objects as files under a root directory. Development
// backend; object keys map directly to relative paths.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		root = "./data/blobs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes the object atomically via a temp file rename.
func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Get reads a whole object.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// RangeGet reads an inclusive byte range of an object.
func (s *FSStore) RangeGet(ctx context.Context, key string, startInclusive, endInclusive int64) ([]byte, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if startInclusive < 0 || endInclusive >= int64(len(data)) || startInclusive > endInclusive {
		return nil, fmt.Errorf("range [%d,%d] out of bounds for %s (%d bytes)",
			startInclusive, endInclusive, key, len(data))
	}
	out := make([]byte, endInclusive-startInclusive+1)
	copy(out, data[startInclusive:endInclusive+1])
	return out, nil
}
