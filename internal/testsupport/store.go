package testsupport

import (
	"context"
	"testing"
	"time"

	"tunegrab/internal/catalog"
	"tunegrab/internal/config"
	"tunegrab/internal/mediaid"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecord upserts a minimal record for id and returns it.
func SeedRecord(t testing.TB, store *catalog.Store, id mediaid.ID, title string) *catalog.Record {
	t.Helper()

	rec := &catalog.Record{
		ID:         id,
		Title:      title,
		Artist:     "Test Artist",
		SourceURL:  id.URL(""),
		LocalPath:  "/library/" + title + ".mp3",
		AcquiredAt: time.Now().UTC(),
	}
	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return rec
}
