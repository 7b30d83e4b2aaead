package scan

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/seralin/baleen/internal/database"
	"github.com/seralin/baleen/internal/timewindow"
	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewStore(db)
}

func TestStoreScope_RoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	scope := Scope{
		Directories: []Directory{
			{Path: "/docs", Label: "Documents", CloudSync: true},
			{Path: "/media", Label: "Media"},
		},
		UseRecommendedExclusions: false,
		CustomExclusions:         []string{"*.tmp", "node_modules"},
	}
	if err := store.SaveScope(ctx, scope); err != nil {
		t.Fatalf("SaveScope: %v", err)
	}

	got, err := store.LoadScope(ctx)
	if err != nil {
		t.Fatalf("LoadScope: %v", err)
	}
	if len(got.Directories) != 2 {
		t.Fatalf("directories = %d, want 2", len(got.Directories))
	}
	if got.Directories[0].Path != "/docs" || !got.Directories[0].CloudSync {
		t.Errorf("first directory = %+v", got.Directories[0])
	}
	if got.Directories[1].Path != "/media" {
		t.Errorf("directory order not preserved: %+v", got.Directories)
	}
	if got.UseRecommendedExclusions {
		t.Error("UseRecommendedExclusions not persisted as false")
	}
	if len(got.CustomExclusions) != 2 || got.CustomExclusions[0] != "*.tmp" {
		t.Errorf("exclusions = %v", got.CustomExclusions)
	}
}

func TestStoreScope_SaveReplacesDirectories(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := Scope{Directories: []Directory{{Path: "/a"}, {Path: "/b"}}}
	if err := store.SaveScope(ctx, first); err != nil {
		t.Fatalf("SaveScope: %v", err)
	}
	second := Scope{Directories: []Directory{{Path: "/c"}}}
	if err := store.SaveScope(ctx, second); err != nil {
		t.Fatalf("SaveScope: %v", err)
	}

	got, err := store.LoadScope(ctx)
	if err != nil {
		t.Fatalf("LoadScope: %v", err)
	}
	if len(got.Directories) != 1 || got.Directories[0].Path != "/c" {
		t.Errorf("directories = %+v, want wholesale replacement", got.Directories)
	}
}

func TestStoreScope_EmptyDatabase(t *testing.T) {
	store := setupStore(t)

	got, err := store.LoadScope(context.Background())
	if err != nil {
		t.Fatalf("LoadScope: %v", err)
	}
	if len(got.Directories) != 0 {
		t.Errorf("directories = %v, want empty", got.Directories)
	}
	if !got.UseRecommendedExclusions {
		t.Error("recommended exclusions should default on")
	}
}

func TestStoreRange_RoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	r := timewindow.Range{Selector: timewindow.SelectorCustom, From: &from, To: &to}
	if err := store.SaveRange(ctx, r); err != nil {
		t.Fatalf("SaveRange: %v", err)
	}

	got, err := store.LoadRange(ctx)
	if err != nil {
		t.Fatalf("LoadRange: %v", err)
	}
	if got.Selector != timewindow.SelectorCustom {
		t.Errorf("selector = %q", got.Selector)
	}
	if got.From == nil || !got.From.Equal(from) {
		t.Errorf("From = %v, want %v", got.From, from)
	}
	if got.To == nil || !got.To.Equal(to) {
		t.Errorf("To = %v, want %v", got.To, to)
	}
}

func TestStoreRange_DefaultsToAllTime(t *testing.T) {
	store := setupStore(t)

	got, err := store.LoadRange(context.Background())
	if err != nil {
		t.Fatalf("LoadRange: %v", err)
	}
	if got.Selector != timewindow.SelectorAllTime {
		t.Errorf("selector = %q, want all-time default", got.Selector)
	}
}

func TestStoreRecord_RoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rng := timewindow.Range{Selector: timewindow.SelectorYear, Year: 2024}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	record := &Record{
		Range:       rng,
		Window:      timewindow.Resolve(rng, now),
		CompletedAt: now,
		FileCount:   2,
	}
	files := []File{
		{Path: "/docs/a.pdf", Name: "a.pdf", Parent: "/docs", Kind: KindDocument,
			Size: 1024, ModifiedAt: now.AddDate(0, -6, 0), Origin: OriginDownloaded},
		{Path: "/docs/b.jpg", Name: "b.jpg", Parent: "/docs", Kind: KindImage,
			Size: 2048, ModifiedAt: now.AddDate(0, -3, 0), Origin: OriginSynced},
	}

	if err := store.SaveRecord(ctx, record, files); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	gotRecord, gotFiles, err := store.LoadRecord(ctx)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if gotRecord == nil {
		t.Fatal("record is nil")
	}
	if gotRecord.Range.Selector != timewindow.SelectorYear || gotRecord.Range.Year != 2024 {
		t.Errorf("range = %+v", gotRecord.Range)
	}
	if !gotRecord.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", gotRecord.CompletedAt, now)
	}
	if gotRecord.FileCount != 2 {
		t.Errorf("FileCount = %d", gotRecord.FileCount)
	}

	if len(gotFiles) != 2 {
		t.Fatalf("files = %d, want 2", len(gotFiles))
	}
	// Loaded newest first.
	if gotFiles[0].Path != "/docs/b.jpg" {
		t.Errorf("first file = %q, want newest", gotFiles[0].Path)
	}
	if gotFiles[1].Kind != KindDocument || gotFiles[1].Origin != OriginDownloaded {
		t.Errorf("file attributes lost: %+v", gotFiles[1])
	}
}

func TestStoreRecord_Empty(t *testing.T) {
	store := setupStore(t)

	record, files, err := store.LoadRecord(context.Background())
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if record != nil || files != nil {
		t.Errorf("record = %+v files = %v, want nil before any scan", record, files)
	}
}

func TestStoreRecord_SaveReplacesInventory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rng := timewindow.Range{Selector: timewindow.SelectorAllTime}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mk := func(count int, paths ...string) (*Record, []File) {
		files := make([]File, len(paths))
		for i, p := range paths {
			files[i] = File{Path: p, Name: p, Parent: "/", Kind: KindDocument, ModifiedAt: now}
		}
		return &Record{Range: rng, Window: timewindow.Resolve(rng, now), CompletedAt: now, FileCount: count}, files
	}

	r1, f1 := mk(3, "/a", "/b", "/c")
	if err := store.SaveRecord(ctx, r1, f1); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	r2, f2 := mk(1, "/d")
	if err := store.SaveRecord(ctx, r2, f2); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	_, files, err := store.LoadRecord(ctx)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if len(files) != 1 || files[0].Path != "/d" {
		t.Errorf("files = %+v, want prior inventory replaced", files)
	}
}
