package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_fretcoach.sqlite3")
	t.Setenv("FRETCOACH_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil {
		t.Fatal("Expected non-nil GORM DB handle")
	}
	if client.db == nil {
		t.Fatal("Expected non-nil sql.DB handle")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithCustomPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	if err != nil {
		t.Fatalf("Failed to create DB with custom path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(customPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at custom path %s", customPath)
	}
}

func TestRegisterReference(t *testing.T) {
	client, _ := setupTestDB(t)

	id, err := client.RegisterReference(Reference{
		Title:       "Bambina",
		Performer:   "HOTEI",
		AudioPath:   "/data/bambina.wav",
		ContentHash: "abc",
		SampleRate:  44100,
		DurationMs:  30000,
	})
	if err != nil {
		t.Fatalf("Failed to register reference: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a generated ID")
	}

	ref, err := client.GetReference(id)
	if err != nil {
		t.Fatalf("Failed to retrieve reference: %v", err)
	}
	if ref.Title != "Bambina" || ref.Performer != "HOTEI" {
		t.Errorf("Unexpected reference %+v", ref)
	}
	if ref.SampleRate != 44100 || ref.DurationMs != 30000 {
		t.Errorf("Expected rate 44100 and 30000ms, got %d and %d", ref.SampleRate, ref.DurationMs)
	}
}

func TestRegisterReferenceIsIdempotent(t *testing.T) {
	client, _ := setupTestDB(t)

	first, err := client.RegisterReference(Reference{Title: "Riff", Performer: "TAK"})
	if err != nil {
		t.Fatalf("First register failed: %v", err)
	}
	second, err := client.RegisterReference(Reference{Title: "Riff", Performer: "TAK", YouTubeID: "dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("Second register failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected same ID for duplicate reference, got %s and %s", first, second)
	}

	ref, _ := client.GetReference(first)
	if ref.YouTubeID != "dQw4w9WgXcQ" {
		t.Errorf("Expected YouTube ID to be filled in, got %q", ref.YouTubeID)
	}

	other, err := client.RegisterReference(Reference{Title: "Riff", Performer: "GOTOH"})
	if err != nil {
		t.Fatalf("Register for other performer failed: %v", err)
	}
	if other == first {
		t.Error("Different performer should create a new reference")
	}
}

func TestGetReferenceNotFound(t *testing.T) {
	client, _ := setupTestDB(t)

	_, err := client.GetReference("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListReferences(t *testing.T) {
	client, _ := setupTestDB(t)

	refs, err := client.ListReferences()
	if err != nil {
		t.Fatalf("ListReferences failed: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("Expected empty library, got %d", len(refs))
	}

	for _, title := range []string{"One", "Two", "Three"} {
		if _, err := client.RegisterReference(Reference{Title: title}); err != nil {
			t.Fatalf("Register %s failed: %v", title, err)
		}
	}
	refs, _ = client.ListReferences()
	if len(refs) != 3 {
		t.Errorf("Expected 3 references, got %d", len(refs))
	}
}

func TestDeleteReferenceByID(t *testing.T) {
	client, _ := setupTestDB(t)

	id, _ := client.RegisterReference(Reference{Title: "Gone", ContentHash: "h1"})
	keep, _ := client.RegisterReference(Reference{Title: "Kept", ContentHash: "h2"})
	if err := client.PutPitchCache(PitchCache{CacheKey: "h1/yin", ContentHash: "h1", Track: []byte("[]")}); err != nil {
		t.Fatalf("PutPitchCache failed: %v", err)
	}
	if err := client.PutPitchCache(PitchCache{CacheKey: "h2/yin", ContentHash: "h2", Track: []byte("[]")}); err != nil {
		t.Fatalf("PutPitchCache failed: %v", err)
	}
	if err := client.RecordAttempt(&Attempt{ReferenceID: id, Score: 50}); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}

	if err := client.DeleteReferenceByID(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := client.GetReference(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted reference to be gone, got %v", err)
	}
	if attempts, _ := client.ListAttempts(id, 0); len(attempts) != 0 {
		t.Errorf("Expected attempts to be deleted, got %d", len(attempts))
	}
	if _, err := client.GetPitchCache("h1/yin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected orphaned cache entry to be dropped, got %v", err)
	}
	if _, err := client.GetPitchCache("h2/yin"); err != nil {
		t.Errorf("Cache of %s should survive: %v", keep, err)
	}

	if err := client.DeleteReferenceByID(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPitchCacheUpsert(t *testing.T) {
	client, _ := setupTestDB(t)

	if _, err := client.GetPitchCache("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for empty cache, got %v", err)
	}

	if err := client.PutPitchCache(PitchCache{CacheKey: "k", ContentHash: "h", SampleCount: 1, Track: []byte("a")}); err != nil {
		t.Fatalf("First put failed: %v", err)
	}
	if err := client.PutPitchCache(PitchCache{CacheKey: "k", ContentHash: "h", SampleCount: 2, Track: []byte("b")}); err != nil {
		t.Fatalf("Second put failed: %v", err)
	}

	row, err := client.GetPitchCache("k")
	if err != nil {
		t.Fatalf("GetPitchCache failed: %v", err)
	}
	if row.SampleCount != 2 || string(row.Track) != "b" {
		t.Errorf("Expected replaced entry, got %+v", row)
	}
}

func TestListAttempts(t *testing.T) {
	client, _ := setupTestDB(t)
	id, _ := client.RegisterReference(Reference{Title: "Scale"})

	base := time.Now().Add(-time.Hour)
	for i, score := range []float64{40, 60, 80} {
		a := &Attempt{ReferenceID: id, Score: score, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := client.RecordAttempt(a); err != nil {
			t.Fatalf("RecordAttempt failed: %v", err)
		}
		if a.ID == 0 {
			t.Error("Expected auto-increment ID to be set")
		}
	}

	all, err := client.ListAttempts(id, 0)
	if err != nil {
		t.Fatalf("ListAttempts failed: %v", err)
	}
	if len(all) != 3 || all[0].Score != 80 {
		t.Errorf("Expected 3 attempts newest first, got %+v", all)
	}

	latest, _ := client.ListAttempts(id, 1)
	if len(latest) != 1 || latest[0].Score != 80 {
		t.Errorf("Expected only the newest attempt, got %+v", latest)
	}
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	if _, err := c.ListReferences(); err == nil {
		t.Error("Expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
}
