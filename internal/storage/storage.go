package storage

import (
	"context"
	"errors"
)

// Provider is an interface for storing and retrieving cached artwork bytes
type Provider interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
}

// Errors
var (
	ErrNotFound = errors.New("Artwork does not exist")
)
