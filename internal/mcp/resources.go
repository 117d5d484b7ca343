package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/mark3labs/mcp-go/mcp"
)

// DocFrontmatter represents the optional YAML frontmatter of a documentation
// file. Both fields are optional; files without frontmatter are still
// registered, described by their path.
type DocFrontmatter struct {
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// registerResources exposes every documentation file as an MCP resource under
// the docs:// scheme. Called at startup and again after a successful sync;
// already-registered paths are skipped, so a re-registration only picks up
// newly synced files.
func (s *Server) registerResources() {
	files, err := s.storage.ListFiles()
	if err != nil {
		// No corpus yet. Resources appear after the first sync.
		s.logger.Debug("Skipping resource registration", "error", err)
		return
	}

	added := 0
	for _, rel := range files {
		if s.registered[rel] {
			continue
		}

		name, description := s.describeDoc(rel)
		uri := "docs://" + filepath.ToSlash(rel)

		resource := mcp.NewResource(uri, name,
			mcp.WithResourceDescription(description),
			mcp.WithMIMEType(mimeTypeFor(rel)),
		)
		s.mcpServer.AddResource(resource, s.makeResourceHandler(rel))
		s.registered[rel] = true
		added++
	}

	if added > 0 {
		s.logger.Info("Documentation resources registered", "added", added, "total", len(s.registered))
	}
}

// describeDoc derives a resource name and description from the file's
// frontmatter, falling back to the path when none is present.
func (s *Server) describeDoc(rel string) (name, description string) {
	name = rel
	description = fmt.Sprintf("Documentation file %s", rel)

	target, err := s.storage.ResolvePath(rel)
	if err != nil {
		return name, description
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return name, description
	}

	var matter DocFrontmatter
	if _, err := frontmatter.Parse(strings.NewReader(string(data)), &matter); err != nil {
		s.logger.Debug("Frontmatter parse failed", "path", rel, "error", err)
		return name, description
	}

	if matter.Title != "" {
		name = matter.Title
	}
	if matter.Description != "" {
		description = matter.Description
	}
	return name, description
}

func (s *Server) makeResourceHandler(rel string) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		// Resources return the full file; pagination only applies to the
		// read_doc tool.
		target, err := s.storage.ResolvePath(rel)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", rel, err)
		}
		data, err := os.ReadFile(target)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: mimeTypeFor(rel),
				Text:     string(data),
			},
		}, nil
	}
}

func mimeTypeFor(rel string) string {
	if strings.EqualFold(filepath.Ext(rel), ".md") {
		return "text/markdown"
	}
	return "text/plain"
}
