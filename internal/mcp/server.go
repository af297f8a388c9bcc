// Package mcp exposes the platform helper as Model Context Protocol tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ashureev/datadesk/internal/engine"
	"github.com/ashureev/datadesk/internal/knowledge"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that answers platform questions.
type Server struct {
	kb     *knowledge.Base
	engine *engine.Engine
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server over kb. A nil kb uses the compiled-in table.
func NewServer(kb *knowledge.Base) *Server {
	if kb == nil {
		kb = knowledge.Default()
	}
	s := &Server{
		kb:     kb,
		engine: engine.New(kb),
	}

	s.mcp = server.NewMCPServer(
		"datadesk",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askPlatformHelperTool, s.handleAskPlatformHelper)
	s.mcp.AddTool(getIntentTool, s.handleGetIntent)
	s.mcp.AddTool(listQuickActionsTool, s.handleListQuickActions)
}

// Serve starts the MCP server on stdio. Stdout carries protocol messages, so
// all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
