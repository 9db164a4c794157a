package storage

import (
	"path/filepath"
	"testing"

	"veo-director/internal/appdirs"
)

func TestResolveDBPathUsesCacheDir(t *testing.T) {
	originalResolver := appDirsResolver
	t.Cleanup(func() {
		appDirsResolver = originalResolver
	})

	tempDir := t.TempDir()
	cacheDir := filepath.Join(tempDir, "cache-root")
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{
			OutputDir: filepath.Join(tempDir, "output-root"),
			CacheDir:  cacheDir,
		}, nil
	}

	got, err := resolveDBPath()
	if err != nil {
		t.Fatalf("resolveDBPath() returned error: %v", err)
	}

	want := filepath.Join(cacheDir, "veo-director.db")
	if got != want {
		t.Fatalf("resolveDBPath() = %q, want %q", got, want)
	}
}

func TestInitDBCreatesDirectory(t *testing.T) {
	originalResolver := appDirsResolver
	t.Cleanup(func() {
		appDirsResolver = originalResolver
	})

	cacheDir := filepath.Join(t.TempDir(), "nested", "cache")
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{CacheDir: cacheDir}, nil
	}

	db, err := InitDB()
	if err != nil {
		t.Fatalf("InitDB() returned error: %v", err)
	}
	if !db.Migrator().HasTable(&SessionRecord{}) || !db.Migrator().HasTable(&SceneRecord{}) {
		t.Fatal("InitDB() did not migrate the schema")
	}
}
