// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the reference archive and manuscript sync over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/steno/internal/apperr"
	"github.com/starford/steno/internal/archive"
	"github.com/starford/steno/internal/refservice"
)

// ReferenceFormatURI is the resource URI of ReferenceFormatContract.
const ReferenceFormatURI = "steno://reference-format"

// Server wraps the MCP server with steno tools.
type Server struct {
	mcp *server.MCPServer
	svc *refservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *refservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"steno",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_reference",
		mcp.WithDescription("Fetch a cited source (PDF or HTML page), archive it as Markdown "+
			"under References/ and optionally add a BibTeX entry to the paper's references.bib."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http or https URL of the source")),
		mcp.WithString("title", mcp.Description("Title override")),
		mcp.WithString("slug", mcp.Description("File name override (without extension)")),
		mcp.WithString("bibkey", mcp.Description("Citation key, e.g. smith2026")),
		mcp.WithBoolean("update_bib", mcp.Description("Append a @misc entry for bibkey if missing")),
		mcp.WithString("paper", mcp.Description("Paper name whose <paper>_latex directory receives the entry")),
	), s.addReference)

	s.mcp.AddTool(mcp.NewTool("search_references",
		mcp.WithDescription("Full-text search through archived reference titles, bib keys and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchReferences)

	s.mcp.AddTool(mcp.NewTool("read_reference",
		mcp.WithDescription("Read the full archived Markdown of a reference, header included."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Reference slug (file name without .md)")),
	), s.readReference)

	s.mcp.AddTool(mcp.NewTool("list_references",
		mcp.WithDescription("List archived references, newest first."),
		mcp.WithString("format", mcp.Description("Optional format filter: pdf or html")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
	), s.listReferences)

	s.mcp.AddTool(mcp.NewTool("sync_manuscript",
		mcp.WithDescription("Regenerate the LaTeX fragments (metadata, abstract, body) of a paper "+
			"from its Markdown manuscript."),
		mcp.WithString("paper", mcp.Description("Paper name; empty uses the configured paper")),
	), s.syncManuscript)

	s.mcp.AddTool(mcp.NewTool("get_reference_format",
		mcp.WithDescription("Returns the layout of archived reference files. "+
			"Call this before quoting or citing archived sources."),
	), s.getReferenceFormat)

	s.mcp.AddResource(
		mcp.NewResource(ReferenceFormatURI, "Reference Format",
			mcp.WithResourceDescription("Layout of archived reference files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReferenceFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.AddReference(ctx, archive.Request{
		URL:       url,
		Title:     req.GetString("title", ""),
		Slug:      req.GetString("slug", ""),
		BibKey:    req.GetString("bibkey", ""),
		UpdateBib: req.GetBool("update_bib", false),
		Paper:     req.GetString("paper", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) searchReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no references found"), nil
	}
	return jsonResult(results)
}

func (s *Server) readReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug = strings.TrimSuffix(slug, ".md")
	ref, err := s.svc.GetReference(ctx, slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(ref.Content), nil
}

func (s *Server) listReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, _, err := s.svc.ListReferences(ctx, req.GetInt("limit", 50), 0, req.GetString("format", ""))
	if err != nil {
		return toolError(err), nil
	}
	lines := make([]string, 0, len(refs))
	for _, r := range refs {
		line := fmt.Sprintf("%s\t%s\t%s", r.Slug, r.Format, r.Title)
		if r.BibKey != "" {
			line += "\t@" + r.BibKey
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) syncManuscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.SyncManuscript(ctx, req.GetString("paper", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) getReferenceFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReferenceFormatContract), nil
}

func (s *Server) readReferenceFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ReferenceFormatURI,
			MIMEType: "text/markdown",
			Text:     ReferenceFormatContract,
		},
	}, nil
}
