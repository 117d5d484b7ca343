package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docdex/internal/logging"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
)

// gitSource performs the git operations for one documentation repository:
// shallow clone (sparse when a subpath is configured), fetch-and-reset
// updates, and revision comparison for staleness checks.
//
// Authentication follows a public-first strategy: every operation is tried
// without credentials and retried with the stored GitHub Personal Access
// Token only when the failure looks like an authentication error. Public
// documentation repositories therefore never touch the credential store.
type gitSource struct {
	remoteURL  string
	branch     string // empty means the remote's default branch
	sparsePath string // subtree to check out, empty for a full checkout
	path       string // local clone directory
	creds      *CredentialManager
	logger     *logging.AppLogger
}

// clone performs the initial shallow clone. When a sparse path is configured
// the clone skips the initial checkout and then checks out only that subtree.
func (gs *gitSource) clone(ctx context.Context) error {
	gs.logger.Info("Cloning repository", "remoteURL", gs.remoteURL, "localPath", gs.path)

	if err := os.MkdirAll(filepath.Dir(gs.path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	err := gs.performClone(ctx, nil)
	if err == nil {
		return nil
	}

	if isAuthenticationError(err) {
		gs.logger.Debug("Public clone failed, trying with authentication")
		auth, authErr := gs.getAuthentication()
		if authErr != nil {
			return fmt.Errorf("GitHub authentication failed: %w", authErr)
		}
		if auth == nil {
			return fmt.Errorf("authentication required for %s and no token is stored", gs.remoteURL)
		}
		return gs.performClone(ctx, auth)
	}

	return err
}

func (gs *gitSource) performClone(ctx context.Context, auth *http.BasicAuth) error {
	cloneOpts := &git.CloneOptions{
		URL:          gs.remoteURL,
		Depth:        1,
		SingleBranch: true,
		NoCheckout:   gs.sparsePath != "",
	}
	if auth != nil {
		cloneOpts.Auth = auth
	}
	if gs.branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(gs.branch)
	}

	repo, err := git.PlainCloneContext(ctx, gs.path, cloneOpts)
	if err != nil {
		// Leave no half-cloned directory behind so the next sync retries a
		// fresh clone instead of hitting a conflict.
		os.RemoveAll(gs.path)
		return translateGitError("clone", gs.remoteURL, err)
	}

	if gs.sparsePath != "" {
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get working tree: %w", err)
		}
		checkoutOpts := &git.CheckoutOptions{
			SparseCheckoutDirectories: []string{gs.sparsePath},
		}
		if err := worktree.Checkout(checkoutOpts); err != nil {
			return fmt.Errorf("sparse checkout of %q failed: %w", gs.sparsePath, err)
		}
	}

	gs.logger.Info("Repository cloned successfully", "localPath", gs.path)
	return nil
}

// update fetches the remote and hard-resets the working tree to the
// remote-tracking head. The clone is a read-only cache, so clean
// synchronization beats merge handling. Returns the message to report.
func (gs *gitSource) update(ctx context.Context) (string, error) {
	gs.logger.Info("Updating repository", "localPath", gs.path)

	msg, err := gs.performUpdate(ctx, nil)
	if err == nil {
		return msg, nil
	}

	if isAuthenticationError(err) {
		gs.logger.Debug("Public fetch failed, trying with authentication")
		auth, authErr := gs.getAuthentication()
		if authErr != nil {
			return "", fmt.Errorf("GitHub authentication failed: %w", authErr)
		}
		if auth == nil {
			return "", fmt.Errorf("authentication required for %s and no token is stored", gs.remoteURL)
		}
		return gs.performUpdate(ctx, auth)
	}

	return "", err
}

func (gs *gitSource) performUpdate(ctx context.Context, auth *http.BasicAuth) (string, error) {
	repo, err := git.PlainOpen(gs.path)
	if err != nil {
		return "", fmt.Errorf("failed to open existing repository: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("failed to get origin remote: %w", err)
	}

	fetchOpts := &git.FetchOptions{
		Auth:  auth,
		Depth: 1,
		Force: true, // handle force-pushed documentation branches
	}
	err = remote.FetchContext(ctx, fetchOpts)
	if err == git.NoErrAlreadyUpToDate {
		return "Already up to date.", nil
	}
	if err != nil {
		return "", translateGitError("fetch", gs.remoteURL, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", head.Name().Short()), true)
	if err != nil {
		return "", fmt.Errorf("failed to resolve remote-tracking branch: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get working tree: %w", err)
	}
	if err := worktree.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: remoteRef.Hash(),
	}); err != nil {
		return "", fmt.Errorf("failed to reset to remote head: %w", err)
	}

	gs.logger.Info("Repository updated successfully", "localPath", gs.path, "revision", remoteRef.Hash().String())
	return fmt.Sprintf("Updated to %s.", remoteRef.Hash().String()[:12]), nil
}

// isStale fetches the remote and reports whether the local HEAD lags the
// remote-tracking head. Errors are treated as "not stale": an unreachable
// remote must not block local reads.
func (gs *gitSource) isStale(ctx context.Context) bool {
	repo, err := git.PlainOpen(gs.path)
	if err != nil {
		return false
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return false
	}

	err = remote.FetchContext(ctx, &git.FetchOptions{Depth: 1, Force: true})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		gs.logger.Debug("Staleness fetch failed", "path", gs.path, "error", err)
		return false
	}

	head, err := repo.Head()
	if err != nil {
		return false
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", head.Name().Short()), true)
	if err != nil {
		return false
	}

	return head.Hash() != remoteRef.Hash()
}

// getAuthentication retrieves the PAT from the credential store, or nil when
// none is stored (public access).
func (gs *gitSource) getAuthentication() (*http.BasicAuth, error) {
	if !gs.creds.HasGitHubToken() {
		return nil, nil
	}

	token, err := gs.creds.GetGitHubToken()
	if err != nil {
		return nil, err
	}

	gs.logger.Debug("Using GitHub Personal Access Token for authentication")

	// GitHub PAT authentication uses "token" as username
	return &http.BasicAuth{
		Username: "token",
		Password: token,
	}, nil
}

// isAuthenticationError checks if an error is related to authentication.
func isAuthenticationError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	authPatterns := []string{
		"authentication required",
		"401",
		"unauthorized",
		"403",
		"forbidden",
	}
	for _, pattern := range authPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// translateGitError wraps common git failures with actionable messages.
func translateGitError(operation, remoteURL string, err error) error {
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "404") || strings.Contains(errStr, "not found") {
		return fmt.Errorf("repository not found - check the URL or your access: %s", remoteURL)
	}
	if strings.Contains(errStr, "network") || strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return fmt.Errorf("network error during %s of %s: %w", operation, remoteURL, err)
	}

	return fmt.Errorf("git %s failed for %s: %w", operation, remoteURL, err)
}
