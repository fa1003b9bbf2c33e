package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/database"
)

// Store implements an in-memory artwork store, used for development and tests
type Store struct {
	mu       sync.Mutex
	provider *database.Provider
	artwork  []database.Artwork
	nextID   int64
}

// New returns a new Store instance
func New() *Store {
	return &Store{
		nextID: 1,
	}
}

// GetProvider returns the current provider
func (s *Store) GetProvider(ctx context.Context) (*database.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider == nil {
		return nil, database.ErrNoProvider
	}

	provider := *s.provider
	return &provider, nil
}

// SelectProvider atomically replaces the current provider
func (s *Store) SelectProvider(ctx context.Context, componentName string) (*database.Provider, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider != nil && s.provider.ComponentName == componentName {
		provider := *s.provider
		return &provider, false, nil
	}

	s.provider = &database.Provider{
		ComponentName:    componentName,
		RecentArtworkIDs: database.RecentIDs{},
	}

	provider := *s.provider
	return &provider, true, nil
}

// UpdateProvider persists the rotation state of the existing provider row
func (s *Store) UpdateProvider(ctx context.Context, provider *database.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider == nil || s.provider.ComponentName != provider.ComponentName {
		return database.ErrNoProvider
	}

	updated := *provider
	s.provider = &updated
	return nil
}

// InsertArtwork appends a new artwork row
func (s *Store) InsertArtwork(ctx context.Context, artwork *database.Artwork) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(artwork), nil
}

// CommitArtwork appends a new artwork row and persists the provider state atomically
func (s *Store) CommitArtwork(ctx context.Context, artwork *database.Artwork, provider *database.Provider) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider == nil || s.provider.ComponentName != provider.ComponentName {
		return 0, database.ErrNoProvider
	}

	id := s.insertLocked(artwork)
	updated := *provider
	s.provider = &updated
	return id, nil
}

func (s *Store) insertLocked(artwork *database.Artwork) int64 {
	row := *artwork
	row.ID = s.nextID
	if row.DateAdded.IsZero() {
		row.DateAdded = time.Now()
	}
	if row.MetaFont == "" {
		row.MetaFont = database.MetaFontDefault
	}
	s.nextID++
	s.artwork = append(s.artwork, row)
	artwork.ID = row.ID
	artwork.DateAdded = row.DateAdded
	return row.ID
}

// GetArtwork returns the artwork row for an id
func (s *Store) GetArtwork(ctx context.Context, id int64) (*database.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.artwork {
		if s.artwork[i].ID == id {
			artwork := s.artwork[i]
			return &artwork, nil
		}
	}

	return nil, database.ErrNotFound
}

// GetCurrentArtwork returns the most recently inserted artwork row
func (s *Store) GetCurrentArtwork(ctx context.Context) (*database.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.artwork) == 0 {
		return nil, database.ErrNotFound
	}

	artwork := s.artwork[len(s.artwork)-1]
	return &artwork, nil
}

// GetCurrentArtworkForProvider returns the most recently inserted artwork row for a provider
func (s *Store) GetCurrentArtworkForProvider(ctx context.Context, componentName string) (*database.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.artwork) - 1; i >= 0; i-- {
		if s.artwork[i].SourceComponentName == componentName {
			artwork := s.artwork[i]
			return &artwork, nil
		}
	}

	return nil, database.ErrNotFound
}

// List returns artwork history in reverse-insertion order with an offset/limit
func (s *Store) List(ctx context.Context, offset, limit int) ([]database.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	artwork := []database.Artwork{}
	for i := len(s.artwork) - 1 - offset; i >= 0 && len(artwork) < limit; i-- {
		artwork = append(artwork, s.artwork[i])
	}

	return artwork, nil
}

// Wait waits for the store to be available
func (s *Store) Wait(ctx context.Context) error {
	return nil
}

// Migrate is a no-op for the in-memory store
func (s *Store) Migrate(migrationsURL string) error {
	return nil
}

// Shutdown shuts down the store
func (s *Store) Shutdown() {}
