package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"docdex/internal/config"
	"docdex/internal/logging"
	"docdex/internal/repository"
	"docdex/internal/search"
	"docdex/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is the server version reported during the MCP handshake.
const Version = "1.0.0"

// Server represents an MCP server instance using mcp-go.
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	storage   *storage.Manager
	search    *search.Engine
	sync      *repository.Manager
	mcpServer *server.MCPServer

	// resources already registered, keyed by relative path
	registered map[string]bool
}

// NewServer creates a new MCP server instance.
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	st := storage.NewManager(cfg.DocsDir, cfg.MaxFileChars, cfg.Extensions, logger)
	return &Server{
		config:     cfg,
		logger:     logger,
		storage:    st,
		search:     search.NewEngine(st, cfg.SnippetLength, cfg.MaxSearchResults, logger),
		sync:       repository.NewManager(cfg, logger),
		registered: make(map[string]bool),
	}
}

// Start initializes the MCP server and serves requests over stdio until the
// client disconnects.
func (s *Server) Start() error {
	s.logger.Info("Initializing MCP server", "docsDir", s.config.DocsDir)

	s.mcpServer = server.NewMCPServer("docdex", Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, true),
	)

	s.registerTools()
	s.registerResources()

	s.logger.Info("MCP server created, starting stdio communication")

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	searchTool := mcp.NewTool("search_docs",
		mcp.WithDescription("Search the local documentation for a term. Returns the most relevant files with a snippet of the surrounding context. Filename matches rank highest, then heading matches, then body matches."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text term to search for (case-insensitive)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchDocs)

	readTool := mcp.NewTool("read_doc",
		mcp.WithDescription("Read a documentation file by its relative path. Long files are paginated by character offset; the response notes the window shown so you can request the next page."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the file relative to the documentation root, e.g. 'klipper/docs/Config_Reference.md'"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Character offset to start reading from (default 0)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of characters to return (default %d)", s.config.MaxFileChars)),
		),
	)
	s.mcpServer.AddTool(readTool, s.handleReadDoc)

	treeTool := mcp.NewTool("list_docs_map",
		mcp.WithDescription("Show the directory tree of the local documentation so you can discover what files exist before reading them."),
	)
	s.mcpServer.AddTool(treeTool, s.handleListDocsMap)

	syncDesc := "Clone or update the configured documentation repositories into the local corpus. Run this before searching if the documentation has never been synced."
	if s.sync.HasLocalClones() && s.isStaleQuick() {
		syncDesc += " The local documentation is currently behind its remote."
	}
	syncTool := mcp.NewTool("sync_docs",
		mcp.WithDescription(syncDesc),
	)
	s.mcpServer.AddTool(syncTool, s.handleSyncDocs)
}

// isStaleQuick performs the startup staleness probe with a bounded deadline
// so a slow network cannot delay the stdio handshake for long.
func (s *Server) isStaleQuick() bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.FetchTimeout())
	defer cancel()
	return s.sync.IsStale(ctx)
}

func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")

	results, err := s.search.Search(query)
	if err != nil {
		if msg, ok := domainMessage(err); ok {
			return mcp.NewToolResultText(msg), nil
		}
		s.logger.Error("Search failed", "query", query, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(search.FormatResults(results)), nil
}

func (s *Server) handleReadDoc(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	offset := request.GetInt("offset", 0)
	limit := request.GetInt("limit", s.config.MaxFileChars)

	content, total, err := s.storage.ReadFile(path, offset, limit)
	if err != nil {
		if msg, ok := domainMessage(err); ok {
			return mcp.NewToolResultText(msg), nil
		}
		s.logger.Error("Read failed", "path", path, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("read failed: %v", err)), nil
	}

	return mcp.NewToolResultText(paginate(content, offset, total)), nil
}

// paginate appends a pagination footer whenever the returned window does not
// cover the whole file, so the caller knows to ask for the next offset.
func paginate(content string, offset, total int) string {
	shown := len([]rune(content))
	if offset == 0 && shown == total {
		return content
	}
	start := offset
	if start > total {
		start = total
	}
	return fmt.Sprintf("%s\n\n[... Showing characters %d-%d of %d total]", content, start, start+shown, total)
}

func (s *Server) handleListDocsMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.storage.IsAvailable() {
		return mcp.NewToolResultText((&storage.NotAvailableError{}).Error()), nil
	}

	lines := append([]string{filepath.Base(s.storage.DocsDir()) + "/"}, s.storage.BuildTree()...)
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleSyncDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.sync.SyncAll(ctx)
	if err != nil {
		s.logger.Error("Sync failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
	}

	var report strings.Builder
	synced := false
	for i, r := range results {
		if i > 0 {
			report.WriteString("\n")
		}
		report.WriteString(r.String())
		report.WriteString("\n")
		if r.Success {
			synced = true
		}
	}
	if len(results) == 0 {
		report.WriteString("No repositories configured.\n")
		return mcp.NewToolResultText(report.String()), nil
	}

	if synced {
		s.registerResources()
	}

	// Recheck freshness now that the sync ran, so the client gets a
	// positive confirmation rather than silence.
	staleCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout())
	defer cancel()
	if !s.sync.IsStale(staleCtx) {
		report.WriteString("\nAll documentation repositories are up to date.\n")
	}

	return mcp.NewToolResultText(report.String()), nil
}

// domainMessage maps the storage and search error types onto the plain text
// the tools return. Anything else is an internal failure.
func domainMessage(err error) (string, bool) {
	var traversal *storage.PathTraversalError
	var notFound *storage.ResourceNotFoundError
	var invalid *storage.InvalidPathError
	var unavailable *storage.NotAvailableError
	var emptyQuery *search.EmptyQueryError

	switch {
	case errors.As(err, &traversal),
		errors.As(err, &notFound),
		errors.As(err, &invalid),
		errors.As(err, &unavailable),
		errors.As(err, &emptyQuery):
		return err.Error(), true
	}
	return "", false
}
