package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploadWritesFileAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	url, err := s.Upload(context.Background(), "image", "logo.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/static/image/") {
		t.Fatalf("url = %q", url)
	}
	if !strings.HasSuffix(url, "-logo.png") {
		t.Fatalf("url = %q, want random prefix before the basename", url)
	}

	key := strings.TrimPrefix(url, "http://localhost:8080/static/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("stored content = %q", data)
	}
}

func TestUploadDistinctKeysForSameName(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	a, err := s.Upload(context.Background(), "image", "photo.jpg", []byte("one"))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	b, err := s.Upload(context.Background(), "image", "photo.jpg", []byte("two"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if a == b {
		t.Fatalf("both uploads produced %q", a)
	}
}

func TestUploadStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "http://files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	url, err := s.Upload(context.Background(), "image", "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if strings.Contains(url, "..") {
		t.Fatalf("url = %q, traversal survived", url)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "etc")); err == nil {
		t.Fatal("upload escaped the storage root")
	}
}

func TestUploadEmptyFile(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := s.Upload(context.Background(), "image", "empty.png", nil); err == nil {
		t.Fatal("expected an error for empty data")
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "image/a.png", want: "image/a.png"},
		{in: "/image/a.png", want: "image/a.png"},
		{in: "./image/a.png", want: "image/a.png"},
		{in: "image\\a.png", want: "image/a.png"},
		{in: "../a.png", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("sanitizeKey(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("sanitizeKey(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
