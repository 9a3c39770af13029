package domain

import "errors"

// ErrInvalidKind is returned when a node kind is not one of the recognized kinds.
var ErrInvalidKind = errors.New("invalid node kind")

// ErrNodeNotFound is returned when a node ID does not resolve within a diagram.
var ErrNodeNotFound = errors.New("node not found")

// ErrMalformedInput is returned when imported data cannot be parsed or violates
// the diagram invariants (missing keys, dangling edge references).
var ErrMalformedInput = errors.New("malformed input")

// ErrUnsupportedFormat is returned when an import file has an unrecognized extension.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrEntityNotFound is returned when an entity ID cannot be found in a collection.
var ErrEntityNotFound = errors.New("entity not found")

// ErrInvalidEntity is returned when an entity fails field validation before a write.
var ErrInvalidEntity = errors.New("invalid entity")

// ErrKeyNotFound is returned by key-value stores when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrInvalidGesture is returned when the editor receives a gesture its current state cannot accept.
var ErrInvalidGesture = errors.New("invalid gesture")
