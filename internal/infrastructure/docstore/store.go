// Package docstore is an embedded document store that keeps every collection
// in its own JSON file. Mutations on a collection are serialized for the whole
// read-modify-write cycle and persisted with an atomic rename.
package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/pkg/keymutex"
)

const maxIDAttempts = 16

var collectionName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Options configures a Store.
type Options struct {
	Dir      string
	FileMode os.FileMode
	// Fsync flushes file and directory on every write.
	Fsync  bool
	NewID  func() string
	Now    func() time.Time
	Logger *zap.Logger
}

// Store is the process-wide handle over the data directory. Construct it once
// and pass it to every repository.
type Store struct {
	dir      string
	fileMode os.FileMode
	fsync    bool
	newID    func() string
	now      func() time.Time
	locks    *keymutex.Map
	logger   *zap.Logger
}

// MutateFunc receives a private copy of the current document and returns the
// fields to merge. Returning a nil map leaves the document untouched; an error
// aborts the cycle without writing.
type MutateFunc func(current Document) (Document, error)

// Open prepares the data directory and removes temp files left by a crash.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		opts.Dir = "./data"
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	stale, _ := filepath.Glob(filepath.Join(opts.Dir, ".*.tmp"))
	for _, p := range stale {
		if err := os.Remove(p); err == nil {
			opts.Logger.Warn("removed stale temp file", zap.String("path", p))
		}
	}

	return &Store{
		dir:      opts.Dir,
		fileMode: opts.FileMode,
		fsync:    opts.Fsync,
		newID:    opts.NewID,
		now:      opts.Now,
		locks:    keymutex.New(),
		logger:   opts.Logger,
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// GetAll returns every document of a collection. A missing container is
// provisioned as an empty collection before returning.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Document, error) {
	if err := s.check(ctx, collection); err != nil {
		return nil, err
	}

	docs, exists, err := s.load(collection)
	if err != nil {
		s.logLoadError(collection, err)
		return nil, err
	}
	if exists {
		return docs, nil
	}
	return s.provision(ctx, collection)
}

// GetByID returns the document or nil when absent.
func (s *Store) GetByID(ctx context.Context, collection, id string) (Document, error) {
	docs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ID() == id {
			return doc, nil
		}
	}
	return nil, nil
}

// Find returns every document matching the predicate, in stored order.
func (s *Store) Find(ctx context.Context, collection string, match Predicate) ([]Document, error) {
	docs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if match == nil || match(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// FindOne returns the first match or nil.
func (s *Store) FindOne(ctx context.Context, collection string, match Predicate) (Document, error) {
	docs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if match == nil || match(doc) {
			return doc, nil
		}
	}
	return nil, nil
}

// Create stores a new document with a fresh id and timestamps. Any id or
// timestamp present in data is replaced.
func (s *Store) Create(ctx context.Context, collection string, data interface{}) (Document, error) {
	fields, err := Fields(data)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}

	var created Document
	err = s.withLock(ctx, collection, func(docs []Document) ([]Document, bool, error) {
		id, err := s.uniqueID(docs)
		if err != nil {
			return nil, false, err
		}
		stamp := s.timestamp()
		fields[FieldID] = id
		fields[FieldCreatedAt] = stamp
		fields[FieldUpdatedAt] = stamp
		created = fields
		return append(docs, fields), true, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update merges partial into the stored document. The id and createdAt are
// never overwritten. Returns nil when the id is unknown.
func (s *Store) Update(ctx context.Context, collection, id string, partial interface{}) (Document, error) {
	fields, err := Fields(partial)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return s.Mutate(ctx, collection, id, func(Document) (Document, error) {
		return fields, nil
	})
}

// Mutate runs fn inside the collection's exclusion scope and merges its result
// into the document. Returns nil when the id is unknown.
func (s *Store) Mutate(ctx context.Context, collection, id string, fn MutateFunc) (Document, error) {
	var updated Document
	err := s.withLock(ctx, collection, func(docs []Document) ([]Document, bool, error) {
		idx := indexOf(docs, id)
		if idx < 0 {
			return docs, false, nil
		}

		current := docs[idx]
		partial, err := fn(cloneDocument(current))
		if err != nil {
			return nil, false, err
		}
		if partial == nil {
			updated = current
			return docs, false, nil
		}
		partial, err = Fields(partial)
		if err != nil {
			return nil, false, fmt.Errorf("encode fields: %w", err)
		}

		next := cloneDocument(current)
		for k, v := range partial {
			if k == FieldID || k == FieldCreatedAt {
				continue
			}
			next[k] = v
		}
		next[FieldUpdatedAt] = s.timestamp()
		docs[idx] = next
		updated = next
		return docs, true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a document and reports whether it existed.
func (s *Store) Delete(ctx context.Context, collection, id string) (bool, error) {
	var removed bool
	err := s.withLock(ctx, collection, func(docs []Document) ([]Document, bool, error) {
		idx := indexOf(docs, id)
		if idx < 0 {
			return docs, false, nil
		}
		removed = true
		return append(docs[:idx], docs[idx+1:]...), true, nil
	})
	return removed, err
}

// Ping verifies the data directory is writable.
func (s *Store) Ping() error {
	f, err := os.CreateTemp(s.dir, ".ping.*.tmp")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// withLock holds the collection lock for load, change and persist. The change
// function returns the new document list and whether it must be written.
func (s *Store) withLock(ctx context.Context, collection string, change func([]Document) ([]Document, bool, error)) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}

	unlock, err := s.locks.Lock(ctx, collection)
	if err != nil {
		return err
	}
	defer unlock()

	docs, _, err := s.load(collection)
	if err != nil {
		s.logLoadError(collection, err)
		return err
	}
	if docs == nil {
		docs = []Document{}
	}

	next, dirty, err := change(docs)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	return s.persist(collection, next)
}

func (s *Store) provision(ctx context.Context, collection string) ([]Document, error) {
	unlock, err := s.locks.Lock(ctx, collection)
	if err != nil {
		return nil, err
	}
	defer unlock()

	docs, exists, err := s.load(collection)
	if err != nil {
		s.logLoadError(collection, err)
		return nil, err
	}
	if exists {
		return docs, nil
	}
	if err := s.persist(collection, []Document{}); err != nil {
		return nil, err
	}
	s.logger.Info("collection provisioned", zap.String("collection", collection))
	return []Document{}, nil
}

func (s *Store) check(ctx context.Context, collection string) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if !collectionName.MatchString(collection) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	return nil
}

func (s *Store) uniqueID(docs []Document) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if id != "" && indexOf(docs, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique id after %d attempts", maxIDAttempts)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) logLoadError(collection string, err error) {
	if IsCorrupt(err) {
		s.logger.Error("corrupt collection", zap.String("collection", collection), zap.Error(err))
		return
	}
	s.logger.Error("collection load failed", zap.String("collection", collection), zap.Error(err))
}

func indexOf(docs []Document, id string) int {
	for i, doc := range docs {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
