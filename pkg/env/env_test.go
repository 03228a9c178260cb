package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("CARGOPARTS_TEST_VALUE", "  ")
	if got := Get("CARGOPARTS_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("CARGOPARTS_TEST_VALUE", "set")
	if got := Get("CARGOPARTS_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestLoadDotenvKeepsProcessValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "CARGOPARTS_TEST_FROM_FILE=file\nCARGOPARTS_TEST_PRESET=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(FileVar, path)
	t.Setenv("CARGOPARTS_TEST_PRESET", "process")
	t.Setenv("CARGOPARTS_TEST_FROM_FILE", "")
	os.Unsetenv("CARGOPARTS_TEST_FROM_FILE")

	loaded, err := LoadDotenv()
	if err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if loaded != path {
		t.Fatalf("expected %s, got %s", path, loaded)
	}
	if got := os.Getenv("CARGOPARTS_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("expected file value, got %q", got)
	}
	if got := os.Getenv("CARGOPARTS_TEST_PRESET"); got != "process" {
		t.Fatalf("process value overwritten: %q", got)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	t.Setenv(FileVar, filepath.Join(t.TempDir(), "missing.env"))
	if _, err := LoadDotenv(); err == nil {
		t.Fatal("expected error for missing file")
	}
}
