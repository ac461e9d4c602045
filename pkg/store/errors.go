package store

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a lookup finds no row. Callers should use
// IsNotFound rather than comparing directly, since it also matches redis.Nil.
var ErrNotFound = errors.New("store: not found")

// ErrStateTooLarge is returned when a serialized handoff state exceeds the
// 1 MiB limit.
var ErrStateTooLarge = errors.New("store: state exceeds maximum size")

// IsNotFound reports whether err represents a missing row, whether it
// originated as redis.Nil or as ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrNotFound)
}
