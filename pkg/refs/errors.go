package refs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRefNotFound = errors.New("ref not found")
	ErrCorruptRef  = errors.New("corrupt ref")
	ErrEmptyValue  = errors.New("empty ref value")
	ErrInvalidName = errors.New("invalid ref name")
)

// CycleError is returned when resolving a symbolic chain revisits a ref or
// exceeds the maximum hop count. It matches ErrCorruptRef.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: symbolic chain does not terminate: %s", ErrCorruptRef, strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCorruptRef
}

// ErrLocked is returned when another writer holds a ref's lock file for
// longer than the store's lock timeout.
var ErrLocked = errors.New("ref is locked")
