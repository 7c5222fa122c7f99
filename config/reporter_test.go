package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func readReport(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReport(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "report.zip")
	r, err := (&ReporterConfig{Destination: dest}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if r.Name() != dest {
		t.Errorf("Name() = %q, want %q", r.Name(), dest)
	}

	// temporary work directory with nested file
	workDir, err := os.MkdirTemp("", "test-workdir-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(workDir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "sub", "debug.txt"), []byte("nested"), 0644); err != nil {
		t.Fatal(err)
	}

	// regular file, must survive Close
	regular := filepath.Join(t.TempDir(), "stored.log")
	if err := os.WriteFile(regular, []byte("log line"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("work", workDir)
	r.Store("final.log", regular)
	r.Store("absent", filepath.Join(t.TempDir(), "does-not-exist"))
	r.StoreData("chapters/one.txt", []byte("first"))
	r.StoreData("chapters/one.txt", []byte("second"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		os.RemoveAll(workDir)
		t.Error("expected work directory to be removed")
	}
	if _, err := os.Stat(regular); err != nil {
		t.Errorf("stored file should not be removed: %v", err)
	}

	files := readReport(t, dest)
	if files["work/sub/debug.txt"] != "nested" {
		t.Errorf("directory content missing: %v", files)
	}
	if files["final.log"] != "log line" {
		t.Errorf("final.log = %q", files["final.log"])
	}
	if _, ok := files["absent"]; ok {
		t.Error("absent file must be skipped")
	}
	if !strings.Contains(files["MANIFEST"], "final.log") {
		t.Errorf("MANIFEST = %q", files["MANIFEST"])
	}

	var versions []string
	for name, content := range files {
		if strings.HasPrefix(name, "chapters/one.txt") {
			versions = append(versions, content)
		}
	}
	slices.Sort(versions)
	if !slices.Equal(versions, []string{"first", "second"}) {
		t.Errorf("repeated data entries = %v, want both kept", versions)
	}
}

func TestReport_StorePanicsOnOverwrite(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("a", "/tmp/one")
	r.Store("a", "/tmp/one") // same path is fine

	defer func() {
		if recover() == nil {
			t.Error("expected panic when overwriting stored path")
		}
	}()
	r.Store("a", "/tmp/two")
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("x", "y")
	r.StoreData("x", nil)
	if r.Name() != "" {
		t.Error("Name() of nil report must be empty")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
