package object

import (
	"errors"
	"fmt"
)

var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrStorageUnavailable = errors.New("object storage unavailable")
	ErrCorruptObject      = errors.New("corrupt object")
	ErrInvalidHash        = errors.New("invalid object hash")
	ErrInvalidType        = errors.New("object type contains a NUL byte")
)

// NotFoundError reports a missing object. It matches ErrObjectNotFound.
type NotFoundError struct {
	Hash Hash
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %s: %s", e.Hash, ErrObjectNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

// TypeMismatchError is returned by Store.Get when the stored type tag differs
// from the one the caller asked for.
type TypeMismatchError struct {
	Hash     Hash
	Expected ObjectType
	Actual   ObjectType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("object %s: type mismatch: got %q, want %q", e.Hash, e.Actual, e.Expected)
}

// InvalidHashError reports a malformed hex digest. It matches ErrInvalidHash.
type InvalidHashError struct {
	Value string
	Err   error
}

func (e *InvalidHashError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", ErrInvalidHash, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q", ErrInvalidHash, e.Value)
}

func (e *InvalidHashError) Unwrap() error { return e.Err }

func (e *InvalidHashError) Is(target error) bool {
	return target == ErrInvalidHash
}

// storageError wraps an I/O failure so that it matches ErrStorageUnavailable
// while keeping the underlying cause reachable through errors.As.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.op, ErrStorageUnavailable, e.err)
}

func (e *storageError) Unwrap() error { return e.err }

func (e *storageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// StorageError wraps err as an ErrStorageUnavailable failure of op.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, err: err}
}
