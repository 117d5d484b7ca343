// Package storage manages read-only access to the documentation corpus.
//
// Every file-touching operation goes through ResolvePath, which confines
// caller-supplied relative paths to the configured docs directory. The walk
// used for listing never leaves the docs directory because it only descends
// into entries discovered by listing the directory itself; symlinked entries
// are skipped outright so a link planted inside the corpus cannot smuggle in
// content from outside it.
package storage

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"docdex/internal/logging"
)

// maxWalkDepth bounds recursion during corpus walks. Combined with the
// visited-directory guard it defends against pathological directory cycles.
const maxWalkDepth = 20

// Manager provides validated access to files under the docs directory.
type Manager struct {
	docsDir      string
	maxFileChars int
	extensions   []string
	logger       *logging.AppLogger
}

// NewManager creates a storage manager rooted at docsDir. The directory does
// not need to exist yet; availability is checked per operation so an external
// sync can create it later.
func NewManager(docsDir string, maxFileChars int, extensions []string, logger *logging.AppLogger) *Manager {
	abs, err := filepath.Abs(docsDir)
	if err != nil {
		abs = docsDir
	}
	return &Manager{
		docsDir:      abs,
		maxFileChars: maxFileChars,
		extensions:   extensions,
		logger:       logger,
	}
}

// DocsDir returns the configured docs directory.
func (m *Manager) DocsDir() string {
	return m.docsDir
}

// MaxFileChars returns the default read limit in characters.
func (m *Manager) MaxFileChars() int {
	return m.maxFileChars
}

// Extensions returns the supported documentation file extensions.
func (m *Manager) Extensions() []string {
	return m.extensions
}

// IsAvailable reports whether the docs directory exists.
func (m *Manager) IsAvailable() bool {
	info, err := os.Stat(m.docsDir)
	return err == nil && info.IsDir()
}

// RequireAvailable returns a NotAvailableError if the docs directory is missing.
func (m *Manager) RequireAvailable() error {
	if !m.IsAvailable() {
		return &NotAvailableError{}
	}
	return nil
}

// IsSupportedFile reports whether a filename has a supported extension.
func (m *Manager) IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(m.extensions, ext)
}

// ResolvePath resolves a caller-supplied relative path against the docs
// directory and guarantees the result stays inside it.
//
// The join canonicalizes "." and ".." segments, and existing targets are
// resolved through filepath.EvalSymlinks so a symlink inside the corpus that
// points outside it is rejected the same way a ".." escape is. Containment is
// a strict prefix check on the canonical root with a path-separator boundary,
// so "/docs" cannot be escaped into "/docs-evil". An empty relative path
// resolves to the docs directory itself.
func (m *Manager) ResolvePath(rel string) (string, error) {
	canonRoot, err := filepath.EvalSymlinks(m.docsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotAvailableError{}
		}
		return "", &InvalidPathError{Path: rel, Reason: "cannot resolve docs directory"}
	}

	var target string
	if filepath.IsAbs(rel) {
		// Absolute input is taken as-is and must still land inside the root.
		target = filepath.Clean(rel)
	} else {
		target = filepath.Join(canonRoot, rel)
	}

	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}

	if !pathContains(canonRoot, target) {
		m.logger.Warn("Path traversal attempt rejected", "input", rel, "resolved", target)
		return "", &PathTraversalError{Path: rel}
	}

	return target, nil
}

// pathContains reports whether target equals root or lies strictly below it.
func pathContains(root, target string) bool {
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(os.PathSeparator))
}

// ReadFile reads a documentation file by relative path and returns a slice of
// its content plus the total character count.
//
// offset and limit are character (rune) counts, not bytes. A non-positive
// limit falls back to the configured maximum. The slice is clamped to the
// content bounds: an offset at or beyond the end yields an empty string, not
// an error.
func (m *Manager) ReadFile(path string, offset, limit int) (string, int, error) {
	if err := m.RequireAvailable(); err != nil {
		return "", 0, err
	}
	if offset < 0 {
		return "", 0, &InvalidPathError{Path: path, Reason: "offset must be non-negative"}
	}
	if limit <= 0 {
		limit = m.maxFileChars
	}

	target, err := m.ResolvePath(path)
	if err != nil {
		return "", 0, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, &ResourceNotFoundError{Path: path}
		}
		return "", 0, &InvalidPathError{Path: path, Reason: "cannot access file"}
	}
	if info.IsDir() {
		// The root itself ("" input) and any directory are not readable documents.
		return "", 0, &ResourceNotFoundError{Path: path}
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", 0, &InvalidPathError{Path: path, Reason: "cannot read file"}
	}

	runes := []rune(string(data))
	total := len(runes)

	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return string(runes[start:end]), total, nil
}

// ListFiles returns the relative paths of all supported documentation files
// under the docs directory, in walk order.
func (m *Manager) ListFiles() ([]string, error) {
	if err := m.RequireAvailable(); err != nil {
		return nil, err
	}

	var files []string
	visited := make(map[string]bool)
	m.walk(m.docsDir, ".", 1, visited, func(rel string) {
		files = append(files, rel)
	})

	m.logger.Debug("Corpus walk completed", "fileCount", len(files))
	return files, nil
}

// walk recursively visits directories under the docs root. Unreadable
// subtrees are skipped, symlinked entries are ignored, and a visited set over
// canonical paths prevents cycles.
func (m *Manager) walk(absDir, relDir string, depth int, visited map[string]bool, emit func(string)) {
	if depth > maxWalkDepth {
		return
	}

	canon, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return
	}
	if visited[canon] {
		return
	}
	visited[canon] = true

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		abs := filepath.Join(absDir, entry.Name())
		rel := filepath.Join(relDir, entry.Name())
		if entry.IsDir() {
			m.walk(abs, rel, depth+1, visited, emit)
		} else if m.IsSupportedFile(entry.Name()) {
			emit(rel)
		}
	}
}

// BuildTree renders the corpus as indented lines with box-drawing connectors.
// Directories sort before files, both groups case-insensitively; hidden
// entries are excluded. Returns an empty slice when the docs directory is
// missing; callers decide how to surface that.
func (m *Manager) BuildTree() []string {
	return m.buildTree(m.docsDir, "")
}

func (m *Manager) buildTree(dir, prefix string) []string {
	lines := []string{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return lines
	}

	kept := make([]os.DirEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].IsDir() != kept[j].IsDir() {
			return kept[i].IsDir()
		}
		return strings.ToLower(kept[i].Name()) < strings.ToLower(kept[j].Name())
	})

	for i, entry := range kept {
		last := i == len(kept)-1
		connector := "├── "
		if last {
			connector = "└── "
		}

		if entry.IsDir() {
			lines = append(lines, prefix+connector+entry.Name()+"/")
			extension := "│   "
			if last {
				extension = "    "
			}
			lines = append(lines, m.buildTree(filepath.Join(dir, entry.Name()), prefix+extension)...)
		} else {
			lines = append(lines, prefix+connector+entry.Name())
		}
	}

	return lines
}
