package main

import (
	"path/filepath"
	"testing"
)

func TestRealMainConfigErrors(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	if code := realMain([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); code != 1 {
		t.Errorf("expected exit code 1 for a missing config file, got %d", code)
	}
	if code := realMain([]string{"--no-such-flag"}); code != 2 {
		t.Errorf("expected exit code 2 for an unknown flag, got %d", code)
	}
}

func TestRealMainReturnsWhenRunFails(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORAGE_PATH", ":memory:")
	t.Setenv("API_BASE_URL", "not-an-absolute-url")

	if code := realMain(nil); code != 1 {
		t.Errorf("expected exit code 1 when the server cannot start, got %d", code)
	}
}
