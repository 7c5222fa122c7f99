package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	fixzip "github.com/hidez8891/zip"
	"golang.org/x/text/encoding/charmap"
)

type zipEntry struct {
	name    string
	content string
	nonUTF8 bool
	dir     bool
}

func writeZip(t *testing.T, entries []zipEntry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		h := &zip.FileHeader{Name: e.name, Method: zip.Deflate, NonUTF8: e.nonUTF8}
		if e.dir {
			h.SetMode(os.ModeDir | 0755)
		}
		fw, err := w.CreateHeader(h)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if !e.dir {
			if _, err := fw.Write([]byte(e.content)); err != nil {
				t.Fatalf("Failed to write content for %s: %v", e.name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip writer: %v", err)
	}
	zipFile.Close()
	return zipPath
}

func TestWalk(t *testing.T) {
	zipPath := writeZip(t, []zipEntry{
		{name: "OEBPS/", dir: true},
		{name: "OEBPS/Text/ch1.xhtml", content: "<html/>"},
		{name: "OEBPS/Styles/main.css", content: ".a{}"},
		{name: "META-INF/container.xml", content: "<container/>"},
		{name: "mimetype", content: "application/epub+zip"},
	})

	tests := []struct {
		prefix string
		want   int
	}{
		{"OEBPS/", 2},
		{"META-INF/", 1},
		{"nonexistent/", 0},
		{"oebps/", 0},
		{"", 4},
	}
	for _, tt := range tests {
		t.Run("prefix "+tt.prefix, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.prefix, nil, func(archive, name string, file *fixzip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %s, want %s", archive, zipPath)
				}
				visited = append(visited, name)
				return nil
			})
			if err != nil {
				t.Errorf("Walk() error = %v", err)
			}
			if len(visited) != tt.want {
				t.Errorf("visited %v, want %d entries", visited, tt.want)
			}
		})
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := writeZip(t, []zipEntry{
		{name: "a.txt"}, {name: "b.txt"}, {name: "c.txt"},
	})

	var visited int
	stopErr := errors.New("stop walking")
	err := Walk(zipPath, "", nil, func(string, string, *fixzip.File) error {
		visited++
		if visited == 2 {
			return stopErr
		}
		return nil
	})
	if !errors.Is(err, stopErr) {
		t.Errorf("Walk() error = %v, want %v", err, stopErr)
	}
	if visited != 2 {
		t.Errorf("visited %d files, want 2 (early termination)", visited)
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	nop := func(string, string, *fixzip.File) error { return nil }

	if err := Walk("/nonexistent/file.zip", "", nil, nop); err == nil {
		t.Error("Expected error for nonexistent file")
	}

	invalidZip := filepath.Join(t.TempDir(), "invalid.zip")
	if err := os.WriteFile(invalidZip, []byte("not a zip file"), 0644); err != nil {
		t.Fatalf("Failed to create invalid zip: %v", err)
	}
	if err := Walk(invalidZip, "", nil, nop); err == nil {
		t.Error("Expected error for invalid zip file")
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	zipPath := writeZip(t, []zipEntry{
		{name: "ok.txt", content: "x"},
		{name: "../evil.txt", content: "x"},
	})
	err := Walk(zipPath, "", nil, func(string, string, *fixzip.File) error { return nil })
	if err == nil {
		t.Error("Expected error for path traversal entry")
	}
}

func TestWalk_CodePage(t *testing.T) {
	// "глава.xhtml" in CP866
	raw, err := charmap.CodePage866.NewEncoder().String("глава.xhtml")
	if err != nil {
		t.Fatal(err)
	}
	zipPath := writeZip(t, []zipEntry{
		{name: raw, content: "<html/>", nonUTF8: true},
		{name: "утф.css", content: ".a{}"},
	})

	names := func(cp *charmap.Charmap) []string {
		var got []string
		var walkErr error
		if cp == nil {
			walkErr = Walk(zipPath, "", nil, func(_, name string, _ *fixzip.File) error {
				got = append(got, name)
				return nil
			})
		} else {
			walkErr = Walk(zipPath, "", cp, func(_, name string, _ *fixzip.File) error {
				got = append(got, name)
				return nil
			})
		}
		if walkErr != nil {
			t.Fatalf("Walk() error = %v", walkErr)
		}
		sort.Strings(got)
		return got
	}

	got := names(charmap.CodePage866)
	if len(got) != 2 || got[0] != "глава.xhtml" || got[1] != "утф.css" {
		t.Errorf("decoded names = %q", got)
	}

	got = names(nil)
	if len(got) != 2 || got[0] != raw {
		t.Errorf("names without code page = %q, want raw bytes kept", got)
	}
}

func TestReadAll(t *testing.T) {
	zipPath := writeZip(t, []zipEntry{
		{name: "OEBPS/a.css", content: ".a{}"},
		{name: "OEBPS/b.xhtml", content: "<html/>"},
		{name: "OEBPS/c.css", content: ".c{}"},
	})

	files, err := ReadAll(zipPath, "OEBPS/", nil, func(name string) bool {
		return filepath.Ext(name) == ".css"
	})
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(files) != 2 || string(files["OEBPS/a.css"]) != ".a{}" || string(files["OEBPS/c.css"]) != ".c{}" {
		t.Errorf("unexpected files: %v", files)
	}

	all, err := ReadAll(zipPath, "", nil, nil)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d files, want 3", len(all))
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"OEBPS/text.xhtml", true},
		{"a/../b", false},
		{"..", false},
		{"/etc/passwd", false},
		{`\windows`, false},
		{"..hidden/file", true},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
