//go:build integration
// +build integration

package postgresql_test

import (
	"context"
	"errors"
	"reflect"

	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/database/postgresql"
	"github.com/jmoiron/sqlx"

	"testing"
)

var address = "postgresql://postgres@localhost/postgres"

const componentName = "http://provider.example"

func TestPostgresql(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgresql.New(address, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Shutdown()

	if err := store.Migrate("file://../../../migrations"); err != nil {
		t.Fatal(err)
	}

	db := sqlx.MustConnect("pgx", address)
	defer db.Close()

	// Start from a clean slate
	db.MustExec("truncate provider, artwork restart identity")

	t.Run("no provider selected", func(t *testing.T) {
		_, err := store.GetProvider(ctx)
		if !errors.Is(err, database.ErrNoProvider) {
			t.Fatalf("wrong error %v", err)
		}
	})

	t.Run("select a provider", func(t *testing.T) {
		prov, changed, err := store.SelectProvider(ctx, componentName)
		if err != nil {
			t.Fatal(err)
		}

		if !changed {
			t.Error("first selection should report a change")
		}

		if prov.ComponentName != componentName || prov.MaxLoadedArtworkID != 0 {
			t.Errorf("wrong provider %+v", prov)
		}
	})

	t.Run("re-selecting keeps rotation state", func(t *testing.T) {
		prov, _ := store.GetProvider(ctx)
		prov.MaxLoadedArtworkID = 7
		prov.RecentArtworkIDs = database.RecentIDs{5, 7}
		if err := store.UpdateProvider(ctx, prov); err != nil {
			t.Fatal(err)
		}

		again, changed, err := store.SelectProvider(ctx, componentName)
		if err != nil {
			t.Fatal(err)
		}

		if changed {
			t.Error("re-selection should not report a change")
		}

		if again.MaxLoadedArtworkID != 7 || !reflect.DeepEqual(again.RecentArtworkIDs, database.RecentIDs{5, 7}) {
			t.Errorf("rotation state lost %+v", again)
		}
	})

	t.Run("switching replaces the provider", func(t *testing.T) {
		prov, changed, err := store.SelectProvider(ctx, "http://other.example")
		if err != nil {
			t.Fatal(err)
		}

		if !changed || prov.MaxLoadedArtworkID != 0 || len(prov.RecentArtworkIDs) != 0 {
			t.Errorf("switch did not reset rotation state %+v", prov)
		}

		// There is only ever one provider row
		var count int
		if err := db.Get(&count, "select count(*) from provider"); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("wrong provider row count %d", count)
		}

		if _, _, err := store.SelectProvider(ctx, componentName); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("commit artwork", func(t *testing.T) {
		prov, _ := store.GetProvider(ctx)
		prov.MaxLoadedArtworkID = 1
		prov.RecentArtworkIDs = database.RecentIDs{1}

		artwork := &database.Artwork{
			SourceComponentName: componentName,
			ImageURI:            componentName + "/images/1.jpg",
			Title:               "Starry Night",
			Byline:              "Vincent van Gogh, 1889",
			Token:               "token",
			MetaFont:            database.MetaFontDefault,
		}

		id, err := store.CommitArtwork(ctx, artwork, prov)
		if err != nil {
			t.Fatal(err)
		}

		stored, err := store.GetArtwork(ctx, id)
		if err != nil {
			t.Fatal(err)
		}

		if stored.ImageURI != artwork.ImageURI || stored.Title != artwork.Title {
			t.Errorf("wrong artwork %+v", stored)
		}

		after, _ := store.GetProvider(ctx)
		if after.MaxLoadedArtworkID != 1 || !reflect.DeepEqual(after.RecentArtworkIDs, database.RecentIDs{1}) {
			t.Errorf("provider state not committed %+v", after)
		}

		current, err := store.GetCurrentArtworkForProvider(ctx, componentName)
		if err != nil {
			t.Fatal(err)
		}
		if current.ID != id {
			t.Errorf("wrong current artwork %d", current.ID)
		}
	})

	t.Run("commit against a stale provider fails", func(t *testing.T) {
		stale := &database.Provider{ComponentName: "http://stale.example"}
		artwork := &database.Artwork{
			SourceComponentName: stale.ComponentName,
			ImageURI:            "http://stale.example/images/1.jpg",
		}

		if _, err := store.CommitArtwork(ctx, artwork, stale); !errors.Is(err, database.ErrNoProvider) {
			t.Fatalf("wrong error %v", err)
		}
	})

	t.Run("nonexistant artwork", func(t *testing.T) {
		if _, err := store.GetArtwork(ctx, 9999); !errors.Is(err, database.ErrNotFound) {
			t.Fatalf("wrong error %v", err)
		}
	})

	t.Run("list artwork history", func(t *testing.T) {
		artwork, err := store.List(ctx, 0, 30)
		if err != nil {
			t.Fatal(err)
		}

		if len(artwork) != 1 {
			t.Errorf("wrong history length %d", len(artwork))
		}
	})

	// Clean up
	db.MustExec("truncate provider, artwork restart identity")
}
