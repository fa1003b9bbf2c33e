package file_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SergeyBurlaka/muzei/internal/storage"
	"github.com/SergeyBurlaka/muzei/internal/storage/file"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()

	provider, err := file.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := provider.Get(ctx, "1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := provider.Put(ctx, "1", []byte("image-bytes")); err != nil {
		t.Fatal(err)
	}

	data, err := provider.Get(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected data: %q", data)
	}

	if err := provider.Delete(ctx, "1"); err != nil {
		t.Fatal(err)
	}

	if _, err := provider.Get(ctx, "1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting missing artwork is fine
	if err := provider.Delete(ctx, "1"); err != nil {
		t.Fatal(err)
	}
}
