package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docdex/internal/config"
	"docdex/internal/logging"
)

func testManager(t *testing.T, repos []config.RepoConfig) *Manager {
	t.Helper()

	logger, _ := logging.NewTestLogger()
	cfg := config.DefaultConfig()
	cfg.DocsDir = filepath.Join(t.TempDir(), "docs")
	cfg.Repositories = repos
	return NewManager(cfg, logger)
}

func TestSyncAllCreatesDocsDir(t *testing.T) {
	mgr := testManager(t, nil)

	results, err := mgr.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results for empty repo list, got %d", len(results))
	}
	if info, err := os.Stat(mgr.DocsDir()); err != nil || !info.IsDir() {
		t.Errorf("Expected docs directory to be created: %v", err)
	}
}

func TestSyncAllReportsFailuresPerRepo(t *testing.T) {
	// A file:// URL pointing at nothing fails quickly without network access.
	mgr := testManager(t, []config.RepoConfig{
		{Name: "broken", URL: "file://" + filepath.Join(t.TempDir(), "nope")},
	})

	results, err := mgr.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Success {
		t.Error("Expected failure for unreachable repository")
	}
	if r.RepoName != "broken" {
		t.Errorf("Expected repo name in result, got %q", r.RepoName)
	}
	if r.Message == "" {
		t.Error("Expected a failure message")
	}
	if r.WasCloned || r.WasUpdated {
		t.Error("Failed sync must not report a clone or update")
	}
}

func TestSyncFailureLeavesNoPartialClone(t *testing.T) {
	mgr := testManager(t, []config.RepoConfig{
		{Name: "broken", URL: "file://" + filepath.Join(t.TempDir(), "nope")},
	})

	if _, err := mgr.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(mgr.DocsDir(), "broken")); !os.IsNotExist(err) {
		t.Error("Expected no leftover directory after a failed clone")
	}
}

func TestIsStaleWithoutClones(t *testing.T) {
	mgr := testManager(t, []config.RepoConfig{
		{Name: "klipper", URL: "https://github.com/Klipper3d/klipper.git"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Nothing has been cloned, so there is nothing to be stale.
	if mgr.IsStale(ctx) {
		t.Error("Expected not stale when no repository is cloned")
	}
}

func TestHasLocalClones(t *testing.T) {
	mgr := testManager(t, []config.RepoConfig{
		{Name: "klipper", URL: "https://example.invalid/klipper.git"},
	})

	if mgr.HasLocalClones() {
		t.Error("Expected no local clones in a fresh docs dir")
	}

	gitDir := filepath.Join(mgr.DocsDir(), "klipper", ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatalf("Failed to create fake clone: %v", err)
	}

	if !mgr.HasLocalClones() {
		t.Error("Expected local clone to be detected")
	}
}

func TestSyncResultString(t *testing.T) {
	r := SyncResult{RepoName: "klipper", Success: true, Message: "Already up to date."}

	want := "--- Syncing klipper ---\nAlready up to date."
	if got := r.String(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestIsAuthenticationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"authentication required", errors.New("authentication required"), true},
		{"401 status", errors.New("unexpected client error: 401 Unauthorized"), true},
		{"403 status", errors.New("403 Forbidden"), true},
		{"unauthorized text", errors.New("remote: Unauthorized"), true},
		{"plain network error", errors.New("connection refused"), false},
		{"not found", errors.New("repository not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAuthenticationError(tt.err); got != tt.want {
				t.Errorf("isAuthenticationError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTranslateGitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantText string
	}{
		{
			name:     "repository not found",
			err:      errors.New("repository not found"),
			wantText: "check the URL",
		},
		{
			name:     "404 status",
			err:      errors.New("unexpected client error: 404"),
			wantText: "check the URL",
		},
		{
			name:     "network failure",
			err:      errors.New("dial tcp: connection timeout"),
			wantText: "network error",
		},
		{
			name:     "generic failure",
			err:      errors.New("something else entirely"),
			wantText: "git clone failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateGitError("clone", "https://example.com/repo.git", tt.err)
			if got == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(got.Error(), tt.wantText) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantText, got)
			}
		})
	}
}
