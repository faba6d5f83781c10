package docstore

import (
	"errors"
	"fmt"
)

// CorruptStoreError reports a collection container that cannot be parsed.
type CorruptStoreError struct {
	Collection string
	Err        error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("collection %q is corrupt: %v", e.Collection, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err was caused by an unreadable container.
func IsCorrupt(err error) bool {
	var cErr *CorruptStoreError
	return errors.As(err, &cErr)
}

// ErrInvalidCollection is returned for names that are not safe file stems.
var ErrInvalidCollection = errors.New("invalid collection name")
