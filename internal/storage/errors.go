package storage

import "errors"

var (
	ErrIndexUnavailable  = errors.New("vector store unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
