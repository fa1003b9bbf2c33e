package mock

import (
	"context"
	"fmt"

	"github.com/SergeyBurlaka/muzei/internal/database"
)

// Store implements a mock artwork store where every operation fails
type Store struct {
}

// GetProvider returns the current provider
func (s *Store) GetProvider(ctx context.Context) (*database.Provider, error) {
	return nil, fmt.Errorf("provider error")
}

// SelectProvider atomically replaces the current provider
func (s *Store) SelectProvider(ctx context.Context, componentName string) (*database.Provider, bool, error) {
	return nil, false, fmt.Errorf("select error")
}

// UpdateProvider persists the rotation state of the existing provider row
func (s *Store) UpdateProvider(ctx context.Context, provider *database.Provider) error {
	return fmt.Errorf("update error")
}

// InsertArtwork appends a new artwork row
func (s *Store) InsertArtwork(ctx context.Context, artwork *database.Artwork) (int64, error) {
	return 0, fmt.Errorf("insert error")
}

// CommitArtwork appends a new artwork row and persists the provider state
func (s *Store) CommitArtwork(ctx context.Context, artwork *database.Artwork, provider *database.Provider) (int64, error) {
	return 0, fmt.Errorf("commit error")
}

// GetArtwork returns the artwork row for an id
func (s *Store) GetArtwork(ctx context.Context, id int64) (*database.Artwork, error) {
	return nil, fmt.Errorf("get error")
}

// GetCurrentArtwork returns the most recently inserted artwork row
func (s *Store) GetCurrentArtwork(ctx context.Context) (*database.Artwork, error) {
	return nil, fmt.Errorf("current error")
}

// GetCurrentArtworkForProvider returns the most recently inserted artwork row for a provider
func (s *Store) GetCurrentArtworkForProvider(ctx context.Context, componentName string) (*database.Artwork, error) {
	return nil, fmt.Errorf("current error")
}

// List returns artwork history with an offset/limit
func (s *Store) List(ctx context.Context, offset, limit int) ([]database.Artwork, error) {
	return nil, fmt.Errorf("list error")
}

// Wait waits for the store to be available
func (s *Store) Wait(ctx context.Context) error {
	return nil
}

// Migrate is a no-op for the mock store
func (s *Store) Migrate(migrationsURL string) error {
	return nil
}

// Shutdown shuts down the store
func (s *Store) Shutdown() {}
