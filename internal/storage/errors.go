package storage

import "fmt"

// PathTraversalError indicates a caller-supplied path resolved outside the
// docs directory. It carries the original input for diagnostics.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("Access denied: path traversal attempt: %s", e.Path)
}

// ResourceNotFoundError indicates a requested documentation file does not
// exist inside an otherwise-present corpus.
type ResourceNotFoundError struct {
	Path string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("Documentation file not found: %s", e.Path)
}

// InvalidPathError indicates path resolution or the read itself failed for a
// filesystem reason other than traversal or absence (permissions, bad
// arguments, unreadable file).
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "invalid path"
	}
	return fmt.Sprintf("Access denied: %s: %s", reason, e.Path)
}

// NotAvailableError indicates the docs directory itself is missing, i.e. no
// corpus exists at all.
type NotAvailableError struct{}

func (e *NotAvailableError) Error() string {
	return "Documentation directory not found. Run sync_docs() first."
}
