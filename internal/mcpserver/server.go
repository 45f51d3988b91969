// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the memory corpus and its analytics to LLM clients via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/memdash/internal/apperr"
	"github.com/starford/memdash/internal/memoryservice"
	"github.com/starford/memdash/internal/storage"
)

// Server wraps the MCP server with memdash tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *memoryservice.Service
	layout storage.Layout
}

// New creates a new MCP server with all tools registered.
func New(svc *memoryservice.Service, layout storage.Layout, version string) *Server {
	s := &Server{svc: svc, layout: layout}

	s.mcp = server.NewMCPServer(
		"memdash",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_memories",
		mcp.WithDescription("List the long-term note and all daily notes with size and modification time, newest first."),
	), s.listMemories)

	s.mcp.AddTool(mcp.NewTool("read_memory",
		mcp.WithDescription("Read the full content of a memory note. The first line of the result is its checksum."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path, e.g. MEMORY.md or memory/2024-03-10.md")),
	), s.readMemory)

	s.mcp.AddTool(mcp.NewTool("write_memory",
		mcp.WithDescription("Write a memory note, creating it if needed. Read the "+
			CorpusLayoutName+" resource first for where things belong."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path ending in .md")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full new Markdown content")),
		mcp.WithString("if_match", mcp.Description("Checksum from read_memory; the write fails if the note changed since")),
	), s.writeMemory)

	s.mcp.AddTool(mcp.NewTool("search_memory",
		mcp.WithDescription("Search the memory index. mode=text runs a full-text query, mode=semantic asks the indexer for semantic matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("mode", mcp.Description("text (default) or semantic"), mcp.Enum("text", "semantic")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of text results")),
	), s.searchMemory)

	s.mcp.AddTool(mcp.NewTool("entity_graph",
		mcp.WithDescription("Entities (people, projects, tools, recurring topics) mentioned across the corpus and how often they co-occur in the same file."),
	), s.entityGraph)

	s.mcp.AddTool(mcp.NewTool("tag_index",
		mcp.WithDescription("Most frequent heading and bold phrases with the files they appear in."),
	), s.tagIndex)

	s.mcp.AddTool(mcp.NewTool("corpus_health",
		mcp.WithDescription("Daily-note heatmap, stale files, days without a daily note, and long-term vs daily size."),
	), s.corpusHealth)

	s.mcp.AddResource(
		mcp.NewResource(corpusLayoutURI, CorpusLayoutName,
			mcp.WithResourceDescription("How the memory corpus is organized and how the analytics tools read it."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCorpusLayout,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(path string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrInvalidPath):
		return mcp.NewToolResultError(fmt.Sprintf("invalid path: %s", path))
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(fmt.Sprintf("%s changed since it was read; read it again and retry", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listMemories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.svc.ListMemories(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(metas)
}

func (s *Server) readMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.GetMemory(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText("checksum: " + m.Checksum + "\n" + m.Content), nil
}

func (s *Server) writeMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ifMatch := ""
	if v, vErr := req.RequireString("if_match"); vErr == nil {
		ifMatch = v
	}

	m, err := s.svc.SaveMemory(ctx, path, []byte(content), ifMatch)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (checksum %s)", m.Path, m.Checksum)), nil
}

func (s *Server) searchMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := "text"
	if v, vErr := req.RequireString("mode"); vErr == nil && v != "" {
		mode = strings.ToLower(v)
	}

	switch mode {
	case "semantic":
		raw, err := s.svc.SemanticSearch(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(raw)), nil
	case "text":
		results, err := s.svc.Search(ctx, query, req.GetInt("limit", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(results)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q: use text or semantic", mode)), nil
	}
}

func (s *Server) entityGraph(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.svc.EntityGraph(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(g)
}

func (s *Server) tagIndex(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.TagIndex(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) corpusHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := s.svc.Health(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(h)
}

func (s *Server) readCorpusLayout(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      corpusLayoutURI,
			MIMEType: "text/markdown",
			Text:     CorpusLayout(s.layout),
		},
	}, nil
}
