package catalog_test

import (
	"context"
	"testing"

	"snapsort/internal/catalog"
	"snapsort/internal/hashing"
	"snapsort/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	fp := hashing.Fingerprint{Digest: "abc123", Size: 42, Method: hashing.MethodFull}
	if err := store.AddHash(ctx, fp, "/src/a.jpg"); err != nil {
		t.Fatalf("AddHash failed: %v", err)
	}

	first, ok, err := store.LookupHash(ctx, fp)
	if err != nil {
		t.Fatalf("LookupHash failed: %v", err)
	}
	if !ok || first != "/src/a.jpg" {
		t.Fatalf("unexpected lookup result: %q ok=%v", first, ok)
	}
}

func TestAddHashKeepsFirstWriter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	fp := hashing.Fingerprint{Digest: "dupdigest", Size: 100, Method: hashing.MethodFull}
	if err := store.AddHash(ctx, fp, "/src/first.jpg"); err != nil {
		t.Fatalf("AddHash failed: %v", err)
	}
	if err := store.AddHash(ctx, fp, "/src/second.jpg"); err != nil {
		t.Fatalf("second AddHash failed: %v", err)
	}

	first, ok, err := store.LookupHash(ctx, fp)
	if err != nil {
		t.Fatalf("LookupHash failed: %v", err)
	}
	if !ok || first != "/src/first.jpg" {
		t.Fatalf("expected first writer to win, got %q", first)
	}
}

func TestHashIdentityIncludesSizeAndMethod(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	tail := hashing.Fingerprint{Digest: "samedigest", Size: 100, Method: hashing.MethodTail}
	full := hashing.Fingerprint{Digest: "samedigest", Size: 100, Method: hashing.MethodFull}
	if err := store.AddHash(ctx, tail, "/src/tail.mov"); err != nil {
		t.Fatalf("AddHash failed: %v", err)
	}

	if ok, err := store.HasHash(ctx, full); err != nil {
		t.Fatalf("HasHash failed: %v", err)
	} else if ok {
		t.Fatal("full-method fingerprint should not match tail entry")
	}

	bigger := tail
	bigger.Size = 200
	if ok, err := store.HasHash(ctx, bigger); err != nil {
		t.Fatalf("HasHash failed: %v", err)
	} else if ok {
		t.Fatal("different size should not match")
	}
}

func TestIsProcessedSkipsErrorRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	rec := &catalog.FileRecord{
		SourcePath: "/src/broken.jpg",
		Size:       10,
		Status:     catalog.StatusError,
		ErrorText:  "exiftool timed out",
		RunID:      "run-1",
	}
	if err := store.UpsertRecord(ctx, rec); err != nil {
		t.Fatalf("UpsertRecord failed: %v", err)
	}

	processed, err := store.IsProcessed(ctx, rec.SourcePath)
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if processed {
		t.Fatal("error records must be retried on the next run")
	}

	rec.Status = catalog.StatusMoved
	rec.ErrorText = ""
	rec.Digest = "abc"
	rec.Method = hashing.MethodFull
	rec.DestMaster = "/dest/2024/01/IMG_20240101_000001.jpg"
	if err := store.UpsertRecord(ctx, rec); err != nil {
		t.Fatalf("UpsertRecord failed: %v", err)
	}

	processed, err = store.IsProcessed(ctx, rec.SourcePath)
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !processed {
		t.Fatal("moved records should be skipped on later runs")
	}
}

func TestUpsertRecordReplaces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	rec := &catalog.FileRecord{
		SourcePath: "/src/photo.heic",
		Size:       500,
		Status:     catalog.StatusError,
		ErrorText:  "stat failed",
		RunID:      "run-1",
	}
	if err := store.UpsertRecord(ctx, rec); err != nil {
		t.Fatalf("UpsertRecord failed: %v", err)
	}

	rec.Status = catalog.StatusDuplicate
	rec.ErrorText = ""
	rec.Digest = "d41d8cd9"
	rec.Method = hashing.MethodFull
	rec.DestMaster = "/dest/duplicates/photo.heic"
	rec.RunID = "run-2"
	if err := store.UpsertRecord(ctx, rec); err != nil {
		t.Fatalf("second UpsertRecord failed: %v", err)
	}

	fetched, err := store.GetRecord(ctx, rec.SourcePath)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected record")
	}
	if fetched.Status != catalog.StatusDuplicate {
		t.Fatalf("unexpected status %q", fetched.Status)
	}
	if fetched.ErrorText != "" {
		t.Fatalf("expected cleared error text, got %q", fetched.ErrorText)
	}
	if fetched.RunID != "run-2" {
		t.Fatalf("unexpected run id %q", fetched.RunID)
	}
	if fetched.UpdatedAt == 0 {
		t.Fatal("expected updated_at to be set")
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	records := []*catalog.FileRecord{
		{SourcePath: "/src/a.jpg", Status: catalog.StatusMoved},
		{SourcePath: "/src/b.jpg", Status: catalog.StatusMoved},
		{SourcePath: "/src/c.jpg", Status: catalog.StatusDuplicate},
		{SourcePath: "/src/d.jpg", Status: catalog.StatusError, ErrorText: "boom"},
	}
	for _, rec := range records {
		if err := store.UpsertRecord(ctx, rec); err != nil {
			t.Fatalf("UpsertRecord failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[catalog.StatusMoved] != 2 || stats[catalog.StatusDuplicate] != 1 || stats[catalog.StatusError] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
