package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ashureev/datadesk/internal/conversation"
)

func (s *Server) handleAskPlatformHelper(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	res := s.engine.Classify(question)
	return mcp.NewToolResultStructured(res, res.Response), nil
}

func (s *Server) handleGetIntent(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	intent, err := request.RequireString("intent")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: intent"), nil
	}

	entry, ok := s.kb.Lookup(intent)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf(
			"unknown intent %q; known intents: %s", intent, strings.Join(s.kb.Intents(), ", "),
		)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", entry.Intent)
	fmt.Fprintf(&b, "Keywords: %s\n\n", strings.Join(entry.Keywords, ", "))
	b.WriteString(entry.Response)
	if len(entry.Related) > 0 {
		fmt.Fprintf(&b, "\n\nRelated: %s", strings.Join(entry.Related, ", "))
	}

	return mcp.NewToolResultStructured(entry, b.String()), nil
}

func (s *Server) handleListQuickActions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	labels := conversation.QuickActions()
	return mcp.NewToolResultStructured(
		map[string][]string{"quick_actions": labels},
		strings.Join(labels, "\n"),
	), nil
}
