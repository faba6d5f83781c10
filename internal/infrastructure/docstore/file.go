package docstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// container is the on-disk shape: { "<collection>": [ ... ] }.
type container map[string]json.RawMessage

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// load reads a collection file. exists is false when the file is missing.
func (s *Store) load(collection string) (docs []Document, exists bool, err error) {
	raw, err := os.ReadFile(s.path(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read collection %s: %w", collection, err)
	}

	docs, err = decodeContainer(collection, raw)
	if err != nil {
		return nil, true, err
	}
	return docs, true, nil
}

func decodeContainer(collection string, raw []byte) ([]Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &CorruptStoreError{Collection: collection, Err: errors.New("empty container")}
	}

	var c container
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, &CorruptStoreError{Collection: collection, Err: err}
	}

	inner, ok := c[collection]
	if !ok || bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		return []Document{}, nil
	}

	var docs []Document
	if err := json.Unmarshal(inner, &docs); err != nil {
		return nil, &CorruptStoreError{Collection: collection, Err: err}
	}
	for i, doc := range docs {
		if doc == nil {
			return nil, &CorruptStoreError{Collection: collection, Err: fmt.Errorf("document %d is null", i)}
		}
	}
	return docs, nil
}

// persist replaces the collection file atomically: the full content goes to a
// temp file in the same directory, is synced, then renamed over the live file.
func (s *Store) persist(collection string, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	payload, err := json.MarshalIndent(map[string][]Document{collection: docs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", collection, err)
	}
	tmpPath := tmp.Name()

	cleanup := func(cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return cause
	}

	if _, err := tmp.Write(payload); err != nil {
		return cleanup(fmt.Errorf("write temp for %s: %w", collection, err))
	}
	if s.fsync {
		if err := tmp.Sync(); err != nil {
			return cleanup(fmt.Errorf("sync temp for %s: %w", collection, err))
		}
	}
	if err := tmp.Chmod(s.fileMode); err != nil {
		return cleanup(fmt.Errorf("chmod temp for %s: %w", collection, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp for %s: %w", collection, err)
	}

	if err := os.Rename(tmpPath, s.path(collection)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename collection %s: %w", collection, err)
	}

	if s.fsync {
		syncDir(s.dir)
	}
	return nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports fsync on directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
