// Package repository synchronizes the local documentation corpus with its
// upstream git repositories. Each configured repository is cloned shallowly
// into a subdirectory of the documentation root (with an optional sparse
// checkout of a docs subtree) and updated on demand by fetch-and-reset.
// Authentication against private GitHub repositories uses a Personal Access
// Token held in the operating system keyring.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docdex/internal/config"
	"docdex/internal/logging"
)

// SyncResult reports the outcome of synchronizing a single repository.
type SyncResult struct {
	RepoName   string
	Success    bool
	Message    string
	WasCloned  bool
	WasUpdated bool
	Duration   time.Duration
}

// String renders the result as the block shown in sync reports.
func (r SyncResult) String() string {
	return fmt.Sprintf("--- Syncing %s ---\n%s", r.RepoName, r.Message)
}

// Manager coordinates synchronization of all configured documentation
// repositories. It is safe to create once and reuse; individual operations
// take a context for cancellation.
type Manager struct {
	docsDir      string
	repos        []config.RepoConfig
	cloneTimeout time.Duration
	fetchTimeout time.Duration
	creds        *CredentialManager
	logger       *logging.AppLogger
}

// NewManager builds a Manager from the application configuration.
func NewManager(cfg *config.Config, logger *logging.AppLogger) *Manager {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Manager{
		docsDir:      cfg.DocsDir,
		repos:        cfg.Repositories,
		cloneTimeout: cfg.CloneTimeout(),
		fetchTimeout: cfg.FetchTimeout(),
		creds:        NewCredentialManager(),
		logger:       logger,
	}
}

// DocsDir returns the documentation root the manager syncs into.
func (m *Manager) DocsDir() string {
	return m.docsDir
}

// SyncAll clones or updates every configured repository. Repositories are
// processed independently: a failure in one is reported in its SyncResult
// and does not abort the others. Results preserve configuration order.
func (m *Manager) SyncAll(ctx context.Context) ([]SyncResult, error) {
	if err := os.MkdirAll(m.docsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create documentation directory %s: %w", m.docsDir, err)
	}

	results := make([]SyncResult, 0, len(m.repos))
	for _, repo := range m.repos {
		results = append(results, m.syncOne(ctx, repo))
	}
	return results, nil
}

// syncOne synchronizes a single repository, cloning it when absent and
// updating it otherwise.
func (m *Manager) syncOne(ctx context.Context, repo config.RepoConfig) SyncResult {
	start := time.Now()
	result := SyncResult{RepoName: repo.Name}

	gs := m.source(repo)

	if _, err := os.Stat(filepath.Join(gs.path, ".git")); os.IsNotExist(err) {
		cloneCtx, cancel := context.WithTimeout(ctx, m.cloneTimeout)
		defer cancel()

		if err := gs.clone(cloneCtx); err != nil {
			m.logger.Error("Clone failed", "repo", repo.Name, "error", err)
			result.Message = fmt.Sprintf("Clone failed: %v", err)
			result.Duration = time.Since(start)
			return result
		}
		result.Success = true
		result.WasCloned = true
		result.Message = "Cloned successfully."
		result.Duration = time.Since(start)
		return result
	}

	updateCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	msg, err := gs.update(updateCtx)
	if err != nil {
		m.logger.Error("Update failed", "repo", repo.Name, "error", err)
		result.Message = fmt.Sprintf("Update failed: %v", err)
		result.Duration = time.Since(start)
		return result
	}
	result.Success = true
	result.WasUpdated = msg != "Already up to date."
	result.Message = msg
	result.Duration = time.Since(start)
	return result
}

// IsStale reports whether any local repository lags its remote. The check
// fetches each remote, so it performs network access; repositories that are
// missing or unreachable count as fresh.
func (m *Manager) IsStale(ctx context.Context) bool {
	for _, repo := range m.repos {
		gs := m.source(repo)
		if _, err := os.Stat(filepath.Join(gs.path, ".git")); err != nil {
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
		stale := gs.isStale(checkCtx)
		cancel()

		if stale {
			m.logger.Info("Repository is behind its remote", "repo", repo.Name)
			return true
		}
	}
	return false
}

// HasLocalClones reports whether at least one configured repository has been
// cloned into the documentation root.
func (m *Manager) HasLocalClones() bool {
	for _, repo := range m.repos {
		if _, err := os.Stat(filepath.Join(m.docsDir, repo.Name, ".git")); err == nil {
			return true
		}
	}
	return false
}

func (m *Manager) source(repo config.RepoConfig) *gitSource {
	return &gitSource{
		remoteURL:  repo.URL,
		branch:     repo.Branch,
		sparsePath: repo.SparsePath,
		path:       filepath.Join(m.docsDir, repo.Name),
		creds:      m.creds,
		logger:     m.logger,
	}
}
