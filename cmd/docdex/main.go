// Package main is the entry point for the docdex CLI application.
//
// docdex keeps a local mirror of upstream documentation repositories and
// serves it to AI assistants over the Model Context Protocol. The same
// search, read, and tree operations are also available directly from the
// command line for scripting and debugging.
//
// The startup sequence is:
//
// 1. Initialize the logging system (stderr or file, never stdout)
// 2. Load configuration from disk, falling back to defaults
// 3. Dispatch to the requested subcommand
//
// The `serve` subcommand speaks MCP over stdin/stdout, so every other output
// stream is kept clean of log noise.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docdex/internal/config"
	"docdex/internal/logging"
	"docdex/internal/mcp"
	"docdex/internal/repository"
	"docdex/internal/search"
	"docdex/internal/storage"

	"github.com/spf13/cobra"
)

func main() {
	appLogger := logging.NewAppLogger()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Error loading config", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	root := newRootCmd(cfg, appLogger)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	root := &cobra.Command{
		Use:           "docdex",
		Short:         "Local documentation mirror with MCP search and read tools",
		Long:          "docdex mirrors upstream documentation repositories locally and exposes search, read, and tree operations to AI assistants over the Model Context Protocol.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		// MCP clients typically invoke the bare binary name.
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.NewServer(cfg, logger).Start()
		},
	}

	root.AddCommand(
		newServeCmd(cfg, logger),
		newSyncCmd(cfg, logger),
		newSearchCmd(cfg, logger),
		newReadCmd(cfg, logger),
		newTreeCmd(cfg, logger),
		newAuthCmd(logger),
	)
	return root
}

func newServeCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.NewServer(cfg, logger).Start()
		},
	}
}

func newSyncCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Clone or update the configured documentation repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := repository.NewManager(cfg, logger)
			results, err := mgr.SyncAll(cmd.Context())
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				fmt.Printf("%s\n\n", r)
				if !r.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d repositories failed to sync", failed, len(results))
			}
			return nil
		},
	}
}

func newSearchCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the local documentation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.NewManager(cfg.DocsDir, cfg.MaxFileChars, cfg.Extensions, logger)
			engine := search.NewEngine(st, cfg.SnippetLength, cfg.MaxSearchResults, logger)
			results, err := engine.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(search.FormatResults(results))
			return nil
		},
	}
}

func newReadCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Read a documentation file by relative path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.NewManager(cfg.DocsDir, cfg.MaxFileChars, cfg.Extensions, logger)
			content, total, err := st.ReadFile(args[0], offset, limit)
			if err != nil {
				return err
			}
			fmt.Println(content)
			shown := len([]rune(content))
			if offset > 0 || shown < total {
				start := offset
				if start > total {
					start = total
				}
				fmt.Printf("\n[... Showing characters %d-%d of %d total]\n", start, start+shown, total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "character offset to start reading from")
	cmd.Flags().IntVar(&limit, "limit", 0, fmt.Sprintf("maximum characters to print (default %d)", cfg.MaxFileChars))
	return cmd
}

func newTreeCmd(cfg *config.Config, logger *logging.AppLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the directory tree of the local documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.NewManager(cfg.DocsDir, cfg.MaxFileChars, cfg.Extensions, logger)
			if !st.IsAvailable() {
				return &storage.NotAvailableError{}
			}
			fmt.Println(filepath.Base(st.DocsDir()) + "/")
			for _, line := range st.BuildTree() {
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newAuthCmd(logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store a GitHub Personal Access Token for private repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print("GitHub Personal Access Token: ")
			reader := bufio.NewReader(os.Stdin)
			token, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			cm := repository.NewCredentialManager()
			if err := cm.StoreGitHubToken(strings.TrimSpace(token)); err != nil {
				return err
			}
			fmt.Println("Token stored in the system keyring.")
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored GitHub token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cm := repository.NewCredentialManager()
			if err := cm.DeleteGitHubToken(); err != nil {
				return err
			}
			fmt.Println("Token removed from the system keyring.")
			return nil
		},
	})
	return cmd
}
