package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractYouTubeID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"watch", "https://www.youtube.com/watch?v=P53EuU4-p8Y", "P53EuU4-p8Y", false},
		{"watch with extra params", "https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", false},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"missing id", "https://www.youtube.com/watch", "", true},
		{"other host", "https://vimeo.com/12345", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractYouTubeID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s, got id %q", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsYouTubeURL(t *testing.T) {
	if !IsYouTubeURL("https://youtu.be/dQw4w9WgXcQ") {
		t.Error("youtu.be should be recognized")
	}
	if IsYouTubeURL("https://example.com/watch?v=dQw4w9WgXcQ") {
		t.Error("example.com should not be recognized")
	}
}

func TestCopyFileAndHash(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "nested", "dst.bin")

	if err := os.WriteFile(src, []byte("riff"), 0o644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	srcHash, err := HashFile(src)
	if err != nil {
		t.Fatalf("HashFile(src) failed: %v", err)
	}
	dstHash, err := HashFile(dst)
	if err != nil {
		t.Fatalf("HashFile(dst) failed: %v", err)
	}
	if srcHash != dstHash {
		t.Errorf("Hashes differ: %s vs %s", srcHash, dstHash)
	}
	if srcHash != HashBytes([]byte("riff")) {
		t.Error("HashFile and HashBytes disagree")
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("Expected distinct IDs")
	}
	if !IsValidID(a) {
		t.Errorf("Generated ID %q does not parse", a)
	}
	if IsValidID("not-a-uuid") {
		t.Error("Expected invalid ID to be rejected")
	}
}
