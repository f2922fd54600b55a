package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// runInfo handles the "librarymcp info" subcommand.
// It prints general MCP configuration information and, with flags,
// client-specific configuration snippets.
func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	opencode := fs.Bool("opencode", false, "show OpenCode MCP client configuration")
	claude := fs.Bool("claude", false, "show Claude Desktop MCP client configuration")
	cursor := fs.Bool("cursor", false, "show Cursor MCP client configuration")
	fs.Parse(args)

	switch {
	case *opencode:
		printClientConfig("OpenCode", ".opencode.json or opencode.json")
	case *claude:
		printClientConfig("Claude Desktop", "claude_desktop_config.json")
	case *cursor:
		printClientConfig("Cursor", ".cursor/mcp.json")
	default:
		printGeneralInfo()
	}
}

func printGeneralInfo() {
	fmt.Fprintf(os.Stdout, `LibraryMCP %s — public library catalog MCP server

LibraryMCP is a Model Context Protocol (MCP) server backed by a local
SQLite database. It exposes a simulated public-library domain — books,
authors, patrons, checkouts, reservations, and fines — as MCP
resources, tools, and prompts.

TRANSPORT

  stdio (only)
    Communicates over stdin/stdout using JSON-RPC 2.0. Launched as a
    subprocess by an MCP client.

TOOLS (7)

  search_catalog           Full-text-ish search over books by title/author/genre
  checkout_book             Check out an available copy to an active patron
  return_book               Return a checkout, charging late fees and filling reservations
  reserve_book               Queue a patron for a book with no copies available
  bulk_import_books          Batched, cancellable, idempotent catalog import
  catalog_maintenance        On-demand integrity/index/stats repair sweep
  generate_book_insights     AI-assisted book commentary with a deterministic fallback

PROMPTS (3)

  book_recommendations   Recommend books, optionally grounded in patron history
  reading_plan           Build a structured multi-month reading plan
  review_generator       Generate a book review in a given style

RESOURCES (7)

  library://books                       Paginated book list
  library://books/{isbn}                Single book detail
  library://genres/{genre}/books        Books in a genre
  library://authors/{author_id}/books   Books by an author
  library://patrons/{patron_id}         Patron detail, open checkouts and fines
  library://stats                       Aggregate catalog/circulation stats
  library://recommendations/{patron_id} Recommendations for a patron

CONFIGURATION

  librarymcp.toml (or LIBRARYMCP_CONFIG) configures database.path,
  loan.default_days/max_days, late_fee.per_day, sampling.timeout_seconds,
  pagination.default_page_size/max_page_size, and observability settings.
  See --opencode/--claude/--cursor for client-side MCP configuration.

CLIENT CONFIGURATION

  To see configuration for a specific MCP client, run:

    librarymcp info --opencode    OpenCode (.opencode.json)
    librarymcp info --claude      Claude Desktop (claude_desktop_config.json)
    librarymcp info --cursor      Cursor (.cursor/mcp.json)
`, Version)
}

func printClientConfig(client, file string) {
	fmt.Fprintf(os.Stdout, `%s — stdio mode
%s

Add to %s:

{
  "mcpServers": {
    "librarymcp": {
      "command": "librarymcp",
      "env": {
        "LIBRARYMCP_DATABASE_PATH": "/path/to/library.db"
      }
    }
  }
}

LibraryMCP runs as a subprocess — no server needed.

`, client, strings.Repeat("─", len(client)+14), file)
}
