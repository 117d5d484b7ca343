package repository

import (
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service name for OS credential store
	credentialService = "docdex"
	// Key for GitHub Personal Access Token
	githubTokenKey = "github_pat"
)

// CredentialManager handles secure storage and retrieval of the optional
// GitHub Personal Access Token used for private documentation repositories.
type CredentialManager struct {
	service string
}

// NewCredentialManager creates a new credential manager instance
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{
		service: credentialService,
	}
}

// StoreGitHubToken securely stores a GitHub Personal Access Token in the OS
// credential store. The token is validated before storage.
func (cm *CredentialManager) StoreGitHubToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := validateTokenFormat(token); err != nil {
		return fmt.Errorf("invalid token format: %w", err)
	}

	if err := keyring.Set(cm.service, githubTokenKey, token); err != nil {
		return fmt.Errorf("failed to store token in credential store: %w", err)
	}

	return nil
}

// GetGitHubToken retrieves the stored token from the OS credential store.
func (cm *CredentialManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(cm.service, githubTokenKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", fmt.Errorf("no GitHub token stored - run 'docdex auth' to configure one")
		}
		return "", fmt.Errorf("failed to retrieve token from credential store: %w", err)
	}

	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("stored token is empty - run 'docdex auth' to replace it")
	}

	return token, nil
}

// DeleteGitHubToken removes the stored token. Returns nil if none is stored.
func (cm *CredentialManager) DeleteGitHubToken() error {
	err := keyring.Delete(cm.service, githubTokenKey)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete token from credential store: %w", err)
	}
	return nil
}

// HasGitHubToken checks if a token is stored without retrieving it.
func (cm *CredentialManager) HasGitHubToken() bool {
	_, err := keyring.Get(cm.service, githubTokenKey)
	return err == nil
}

// validateTokenFormat validates that the token matches GitHub PAT format
// expectations. GitHub tokens carry a type-specific prefix.
func validateTokenFormat(token string) error {
	token = strings.TrimSpace(token)

	if len(token) < 20 {
		return fmt.Errorf("token too short (minimum 20 characters)")
	}

	validPrefixes := []string{
		"ghp_",        // Classic Personal Access Token
		"github_pat_", // Fine-grained Personal Access Token
		"gho_",        // OAuth token
		"ghu_",        // User-to-server token
		"ghs_",        // Server-to-server token
	}

	for _, prefix := range validPrefixes {
		if strings.HasPrefix(token, prefix) {
			return nil
		}
	}

	return fmt.Errorf("token does not match expected GitHub PAT format (should start with ghp_ or github_pat_)")
}
