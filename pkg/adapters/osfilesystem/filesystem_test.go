package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	testPath := filepath.Join(t.TempDir(), "test.txt")
	testData := []byte("hello world")

	if err := fs.WriteFile(testPath, testData); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fs.ReadFile(testPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	info, err := os.Stat(testPath)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestFileSystem_WriteFileCreatesParentDirs(t *testing.T) {
	fs := New()
	testPath := filepath.Join(t.TempDir(), "a", "b", "c", "test.txt")

	if err := fs.WriteFile(testPath, []byte("nested")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if ok, err := fs.Exists(testPath); err != nil || !ok {
		t.Errorf("expected file to exist, got %v, %v", ok, err)
	}
}

func TestFileSystem_WriteFileReplacesWithoutLeftovers(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	testPath := filepath.Join(dir, "batch.json")

	for _, content := range []string{"first version", "second"} {
		if err := fs.WriteFile(testPath, []byte(content)); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	data, _ := fs.ReadFile(testPath)
	if string(data) != "second" {
		t.Errorf("expected replaced content, got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fs := New()
	dirPath := filepath.Join(t.TempDir(), "x", "y", "z")

	if err := fs.MkdirAll(dirPath); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}
}

func TestFileSystem_Exists(t *testing.T) {
	fs := New()
	dir := t.TempDir()

	if ok, err := fs.Exists(filepath.Join(dir, "missing")); err != nil || ok {
		t.Errorf("expected missing file to not exist, got %v, %v", ok, err)
	}
	if ok, err := fs.Exists(dir); err != nil || !ok {
		t.Errorf("expected directory to exist, got %v, %v", ok, err)
	}
}

func TestFileSystem_Remove(t *testing.T) {
	fs := New()
	testPath := filepath.Join(t.TempDir(), "remove.txt")

	if err := fs.WriteFile(testPath, []byte("x")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.Remove(testPath); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := fs.Exists(testPath); ok {
		t.Error("expected file to be removed")
	}
	if err := fs.Remove(testPath); err == nil {
		t.Error("expected error removing a missing file")
	}
}
