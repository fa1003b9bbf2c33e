package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/database"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Store implements a postgresql based artwork store
type Store struct {
	db      *sqlx.DB
	address string
}

// New returns a new Store instance
func New(address string, maxConns int) (*Store, error) {
	db, err := sqlx.Open("pgx", address)
	if err != nil {
		return nil, err
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	// Use Unsafe so that the app doesn't fail if we add new columns to the database
	return &Store{
		db:      db.Unsafe(),
		address: address,
	}, nil
}

// GetProvider returns the current provider
func (s *Store) GetProvider(ctx context.Context) (*database.Provider, error) {
	provider := &database.Provider{}
	err := s.db.GetContext(ctx, provider, "select * from provider")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNoProvider
		}
		return nil, err
	}

	return provider, nil
}

// SelectProvider atomically replaces the current provider
func (s *Store) SelectProvider(ctx context.Context, componentName string) (*database.Provider, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	existing := &database.Provider{}
	err = tx.GetContext(ctx, existing, "select * from provider")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	// Re-selecting the active provider keeps its rotation state
	if err == nil && existing.ComponentName == componentName {
		return existing, false, nil
	}

	if _, err := tx.ExecContext(ctx, "delete from provider"); err != nil {
		return nil, false, err
	}

	provider := &database.Provider{
		ComponentName:    componentName,
		RecentArtworkIDs: database.RecentIDs{},
	}
	_, err = tx.ExecContext(ctx,
		"insert into provider (component_name, max_loaded_artwork_id, recent_artwork_ids, supports_next_artwork) values ($1, $2, $3, $4)",
		provider.ComponentName, provider.MaxLoadedArtworkID, provider.RecentArtworkIDs, provider.SupportsNextArtwork)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	return provider, true, nil
}

// UpdateProvider persists the rotation state of the existing provider row
func (s *Store) UpdateProvider(ctx context.Context, provider *database.Provider) error {
	result, err := s.db.ExecContext(ctx,
		"update provider set max_loaded_artwork_id = $1, recent_artwork_ids = $2, supports_next_artwork = $3 where component_name = $4",
		provider.MaxLoadedArtworkID, provider.RecentArtworkIDs, provider.SupportsNextArtwork, provider.ComponentName)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return database.ErrNoProvider
	}

	return nil
}

// InsertArtwork appends a new artwork row and returns its assigned id
func (s *Store) InsertArtwork(ctx context.Context, artwork *database.Artwork) (int64, error) {
	return s.insert(ctx, s.db, artwork)
}

type execGetter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (s *Store) insert(ctx context.Context, db execGetter, artwork *database.Artwork) (int64, error) {
	if artwork.MetaFont == "" {
		artwork.MetaFont = database.MetaFontDefault
	}
	if artwork.DateAdded.IsZero() {
		artwork.DateAdded = time.Now()
	}

	err := db.GetContext(ctx, &artwork.ID,
		"insert into artwork (source_component_name, image_uri, title, byline, attribution, token, meta_font, date_added) values ($1, $2, $3, $4, $5, $6, $7, $8) returning id",
		artwork.SourceComponentName, artwork.ImageURI, artwork.Title, artwork.Byline,
		artwork.Attribution, artwork.Token, artwork.MetaFont, artwork.DateAdded)
	if err != nil {
		return 0, err
	}

	return artwork.ID, nil
}

// CommitArtwork appends a new artwork row and persists the provider state in one transaction
func (s *Store) CommitArtwork(ctx context.Context, artwork *database.Artwork, provider *database.Provider) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := s.insert(ctx, tx, artwork)
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx,
		"update provider set max_loaded_artwork_id = $1, recent_artwork_ids = $2, supports_next_artwork = $3 where component_name = $4",
		provider.MaxLoadedArtworkID, provider.RecentArtworkIDs, provider.SupportsNextArtwork, provider.ComponentName)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, database.ErrNoProvider
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

// GetArtwork returns the artwork row for an id
func (s *Store) GetArtwork(ctx context.Context, id int64) (*database.Artwork, error) {
	artwork := &database.Artwork{}
	err := s.db.GetContext(ctx, artwork, "select * from artwork where id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	return artwork, nil
}

// GetCurrentArtwork returns the most recently inserted artwork row
func (s *Store) GetCurrentArtwork(ctx context.Context) (*database.Artwork, error) {
	artwork := &database.Artwork{}
	err := s.db.GetContext(ctx, artwork, "select * from artwork order by date_added desc, id desc limit 1")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	return artwork, nil
}

// GetCurrentArtworkForProvider returns the most recently inserted artwork row for a provider
func (s *Store) GetCurrentArtworkForProvider(ctx context.Context, componentName string) (*database.Artwork, error) {
	artwork := &database.Artwork{}
	err := s.db.GetContext(ctx, artwork,
		"select * from artwork where source_component_name = $1 order by date_added desc, id desc limit 1", componentName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	return artwork, nil
}

// List returns artwork history in reverse-insertion order with an offset/limit
func (s *Store) List(ctx context.Context, offset, limit int) ([]database.Artwork, error) {
	artwork := []database.Artwork{}
	err := s.db.SelectContext(ctx, &artwork, "select * from artwork order by id desc offset $1 limit $2", offset, limit)
	if err != nil {
		return nil, err
	}

	return artwork, nil
}

// Wait waits for the database to be reachable
func (s *Store) Wait(ctx context.Context) error {
	for {
		if err := s.db.PingContext(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Migrate runs the database migrations
func (s *Store) Migrate(migrationsURL string) error {
	m, err := migrate.New(migrationsURL, s.address)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Shutdown shuts down the database client
func (s *Store) Shutdown() {
	s.db.Close()
}
