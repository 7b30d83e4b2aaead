package local

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/seralin/baleen/internal/scan"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	return path
}

// collect drains one scan's event stream and returns the terminal payload.
func collect(t *testing.T, events <-chan scan.Event) (*scan.Complete, []scan.File) {
	t.Helper()
	var complete *scan.Complete
	var batched []scan.File
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if complete == nil {
					t.Fatal("stream closed without a terminal event")
				}
				return complete, batched
			}
			if ev.Batch != nil {
				batched = append(batched, ev.Batch...)
			}
			if ev.Complete != nil {
				complete = ev.Complete
			}
			if ev.Err != "" {
				t.Fatalf("unexpected error event: %s", ev.Err)
			}
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestScannerScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.pdf", time.Time{})
	writeFile(t, dir, "photos/vacation.jpg", time.Time{})
	writeFile(t, dir, "music/album/track.mp3", time.Time{})
	writeFile(t, dir, "node_modules/pkg/index.js", time.Time{})

	scanner := NewScanner(2, testLogger())
	events, cancel, err := scanner.Scan(context.Background(), scan.Request{
		Directories:              []string{dir},
		UseRecommendedExclusions: true,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer cancel()

	complete, _ := collect(t, events)
	if complete.Partial {
		t.Error("uncancelled scan reported partial")
	}
	if len(complete.Files) != 3 {
		t.Fatalf("files = %d, want 3 (node_modules excluded): %+v", len(complete.Files), complete.Files)
	}

	kinds := make(map[string]scan.Kind)
	for _, f := range complete.Files {
		kinds[f.Name] = f.Kind
	}
	if kinds["report.pdf"] != scan.KindDocument {
		t.Errorf("report.pdf kind = %q", kinds["report.pdf"])
	}
	if kinds["vacation.jpg"] != scan.KindImage {
		t.Errorf("vacation.jpg kind = %q", kinds["vacation.jpg"])
	}
	if kinds["track.mp3"] != scan.KindAudio {
		t.Errorf("track.mp3 kind = %q", kinds["track.mp3"])
	}
}

func TestScannerCustomExclusions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.pdf", time.Time{})
	writeFile(t, dir, "skip.tmp", time.Time{})

	scanner := NewScanner(2, testLogger())
	events, _, err := scanner.Scan(context.Background(), scan.Request{
		Directories:      []string{dir},
		CustomExclusions: []string{"*.tmp"},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	complete, _ := collect(t, events)
	if len(complete.Files) != 1 || complete.Files[0].Name != "keep.pdf" {
		t.Fatalf("files = %+v, want only keep.pdf", complete.Files)
	}
}

func TestScannerTimeWindow(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "recent.pdf", now.AddDate(0, 0, -2))
	writeFile(t, dir, "old.pdf", now.AddDate(0, 0, -60))

	scanner := NewScanner(2, testLogger())
	events, _, err := scanner.Scan(context.Background(), scan.Request{
		Directories: []string{dir},
		DaysBack:    7,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	complete, _ := collect(t, events)
	if len(complete.Files) != 1 || complete.Files[0].Name != "recent.pdf" {
		t.Fatalf("files = %+v, want only the recent file", complete.Files)
	}
}

func TestScannerMissingDirectory(t *testing.T) {
	scanner := NewScanner(2, testLogger())
	_, _, err := scanner.Scan(context.Background(), scan.Request{
		Directories: []string{"/does/not/exist"},
	})
	if err == nil {
		t.Fatal("want error for missing directory")
	}
}

func TestScannerCancel(t *testing.T) {
	dir := t.TempDir()
	for i := range 200 {
		writeFile(t, dir, filepath.Join("sub", "file"+string(rune('a'+i%26))+".pdf"), time.Time{})
	}

	scanner := NewScanner(1, testLogger())
	events, cancel, err := scanner.Scan(context.Background(), scan.Request{
		Directories: []string{dir},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	cancel()

	// The stream still terminates cleanly after cancellation.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}

func TestBuildTree(t *testing.T) {
	files := []scan.File{
		{Path: "/docs/a.pdf", Parent: "/docs"},
		{Path: "/docs/b.pdf", Parent: "/docs"},
		{Path: "/docs/reports/q1.pdf", Parent: "/docs/reports"},
	}
	tree := buildTree([]string{"/docs"}, files)

	if len(tree.Children) != 1 {
		t.Fatalf("top children = %d, want 1 root", len(tree.Children))
	}
	docs := tree.Children[0]
	if docs.Path != "/docs" || docs.FileCount != 2 {
		t.Errorf("docs node = %+v, want 2 direct files", docs)
	}
	if len(docs.Children) != 1 || docs.Children[0].FileCount != 1 {
		t.Errorf("reports node = %+v", docs.Children)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want scan.Kind
	}{
		{"notes.TXT", scan.KindDocument},
		{"photo.jpeg", scan.KindImage},
		{"clip.mkv", scan.KindVideo},
		{"song.flac", scan.KindAudio},
		{"backup.tar", scan.KindArchive},
		{"novel.epub", scan.KindBook},
		{"main.go", scan.KindCode},
		{"mystery.xyz", scan.KindOther},
		{"README", scan.KindOther},
	}
	for _, tt := range tests {
		if got := classify(tt.name); got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestInferOrigin(t *testing.T) {
	tests := []struct {
		path string
		want scan.Origin
	}{
		{"/home/kim/Downloads/setup.zip", scan.OriginDownloaded},
		{"/home/kim/Dropbox/notes.md", scan.OriginSynced},
		{"/home/kim/Documents/draft.odt", scan.OriginCreatedHere},
		{"/srv/share/data.bin", scan.OriginUnknown},
	}
	for _, tt := range tests {
		if got := inferOrigin(tt.path); got != tt.want {
			t.Errorf("inferOrigin(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
