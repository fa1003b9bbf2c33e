package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/database/memory"
)

func TestProviderSingleton(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	if _, err := store.GetProvider(ctx); !errors.Is(err, database.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	provider, changed, err := store.SelectProvider(ctx, "com.example.featured")
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("expected the first select to report a change")
	}
	if provider.MaxLoadedArtworkID != 0 || len(provider.RecentArtworkIDs) != 0 {
		t.Errorf("expected a fresh provider, got %+v", provider)
	}

	// Selecting a different provider replaces the row and resets rotation state
	provider.MaxLoadedArtworkID = 10
	provider.RecentArtworkIDs = database.RecentIDs{1, 2}
	if err := store.UpdateProvider(ctx, provider); err != nil {
		t.Fatal(err)
	}

	replacement, changed, err := store.SelectProvider(ctx, "com.example.gallery")
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("expected the replacement select to report a change")
	}
	if replacement.MaxLoadedArtworkID != 0 || len(replacement.RecentArtworkIDs) != 0 {
		t.Errorf("expected rotation state to reset on switch, got %+v", replacement)
	}

	current, err := store.GetProvider(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if current.ComponentName != "com.example.gallery" {
		t.Errorf("expected exactly the replacement provider, got %q", current.ComponentName)
	}
}

func TestSelectProviderIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	if _, _, err := store.SelectProvider(ctx, "com.example.featured"); err != nil {
		t.Fatal(err)
	}

	provider, err := store.GetProvider(ctx)
	if err != nil {
		t.Fatal(err)
	}
	provider.MaxLoadedArtworkID = 7
	provider.RecentArtworkIDs = database.RecentIDs{5, 6, 7}
	if err := store.UpdateProvider(ctx, provider); err != nil {
		t.Fatal(err)
	}

	same, changed, err := store.SelectProvider(ctx, "com.example.featured")
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("re-selecting the active provider must not report a change")
	}
	if same.MaxLoadedArtworkID != 7 || len(same.RecentArtworkIDs) != 3 {
		t.Errorf("re-selecting the active provider must keep rotation state, got %+v", same)
	}
}

func TestCommitArtwork(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	provider, _, err := store.SelectProvider(ctx, "com.example.featured")
	if err != nil {
		t.Fatal(err)
	}

	provider.MaxLoadedArtworkID = 1
	provider.RecentArtworkIDs = database.RecentIDs{1}
	id, err := store.CommitArtwork(ctx, &database.Artwork{
		SourceComponentName: provider.ComponentName,
		ImageURI:            "https://provider.example.com/artwork/1",
		Title:               "Starry Night",
	}, provider)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("expected first artwork id to be 1, got %d", id)
	}

	artwork, err := store.GetCurrentArtwork(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if artwork.ID != id || artwork.MetaFont != database.MetaFontDefault {
		t.Errorf("unexpected current artwork: %+v", artwork)
	}

	updated, err := store.GetProvider(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if updated.MaxLoadedArtworkID != 1 {
		t.Errorf("expected the commit to persist the provider state, got %+v", updated)
	}

	// Committing against a replaced provider must fail without inserting
	stale := *updated
	if _, _, err := store.SelectProvider(ctx, "com.example.gallery"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CommitArtwork(ctx, &database.Artwork{
		SourceComponentName: stale.ComponentName,
		ImageURI:            "https://provider.example.com/artwork/2",
	}, &stale); !errors.Is(err, database.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	current, err := store.GetCurrentArtwork(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if current.ID != id {
		t.Errorf("stale commit must not insert artwork, current is %+v", current)
	}
}

func TestCurrentArtworkForProvider(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	for _, artwork := range []database.Artwork{
		{SourceComponentName: "com.example.featured", ImageURI: "https://provider.example.com/artwork/1"},
		{SourceComponentName: "com.example.gallery", ImageURI: "https://provider.example.com/artwork/2"},
		{SourceComponentName: "com.example.featured", ImageURI: "https://provider.example.com/artwork/3"},
	} {
		artwork := artwork
		if _, err := store.InsertArtwork(ctx, &artwork); err != nil {
			t.Fatal(err)
		}
	}

	artwork, err := store.GetCurrentArtworkForProvider(ctx, "com.example.gallery")
	if err != nil {
		t.Fatal(err)
	}
	if artwork.ImageURI != "https://provider.example.com/artwork/2" {
		t.Errorf("unexpected current artwork for provider: %+v", artwork)
	}

	if _, err := store.GetCurrentArtworkForProvider(ctx, "com.example.missing"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := store.List(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != 3 || list[1].ID != 2 {
		t.Errorf("unexpected history page: %+v", list)
	}
}
