package database

import (
	"context"
	"errors"
	"time"
)

// MetaFont selects the presentation style for artwork metadata
const (
	MetaFontDefault = "default"
	MetaFontElegant = "elegant"
)

// Provider is the single record describing the currently active art source
type Provider struct {
	ComponentName       string    `db:"component_name" json:"component_name"`
	MaxLoadedArtworkID  int64     `db:"max_loaded_artwork_id" json:"max_loaded_artwork_id"`
	RecentArtworkIDs    RecentIDs `db:"recent_artwork_ids" json:"recent_artwork_ids"`
	SupportsNextArtwork bool      `db:"supports_next_artwork" json:"supports_next_artwork"`
}

// Artwork contains metadata about a piece of artwork loaded from a provider.
// Rows are append-only: displaying a new piece means inserting a new row.
// SourceComponentName is a plain string on purpose, artwork history outlives
// the provider that supplied it.
type Artwork struct {
	ID                  int64     `db:"id" json:"id"`
	SourceComponentName string    `db:"source_component_name" json:"source_component_name"`
	ImageURI            string    `db:"image_uri" json:"image_uri"`
	Title               string    `db:"title" json:"title"`
	Byline              string    `db:"byline" json:"byline"`
	Attribution         string    `db:"attribution" json:"attribution"`
	Token               string    `db:"token" json:"token"`
	MetaFont            string    `db:"meta_font" json:"meta_font"`
	DateAdded           time.Time `db:"date_added" json:"date_added"`
}

// Store is an interface for persisting the active provider and the artwork log
type Store interface {
	// GetProvider returns the current provider, or ErrNoProvider if none has
	// been selected yet.
	GetProvider(ctx context.Context) (*Provider, error)

	// SelectProvider atomically replaces the current provider. Selecting the
	// provider that is already active is a no-op that keeps its rotation state.
	// The returned bool reports whether the active provider actually changed.
	SelectProvider(ctx context.Context, componentName string) (*Provider, bool, error)

	// UpdateProvider persists the rotation state of the existing provider row
	UpdateProvider(ctx context.Context, provider *Provider) error

	// InsertArtwork appends a new artwork row and returns its assigned id
	InsertArtwork(ctx context.Context, artwork *Artwork) (int64, error)

	// CommitArtwork appends a new artwork row and persists the provider's
	// rotation state in a single transaction
	CommitArtwork(ctx context.Context, artwork *Artwork, provider *Provider) (int64, error)

	GetArtwork(ctx context.Context, id int64) (*Artwork, error)
	GetCurrentArtwork(ctx context.Context) (*Artwork, error)
	GetCurrentArtworkForProvider(ctx context.Context, componentName string) (*Artwork, error)
	List(ctx context.Context, offset, limit int) ([]Artwork, error)

	Wait(ctx context.Context) error
	Migrate(migrationsURL string) error
	Shutdown()
}

// Errors
var (
	ErrNotFound   = errors.New("Artwork does not exist")
	ErrNoProvider = errors.New("No provider selected")
)
