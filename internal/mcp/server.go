// Package mcp exposes live coaching sessions to LLM clients over the
// Model Context Protocol, so an assistant can inspect rep counts and
// form quality mid-workout.
package mcp

import (
	"log/slog"

	"github.com/claude/formcoach/internal/session"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools registered.
func New(sessions *session.Manager, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FormCoach", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("FormCoach exercise analysis server. Inspect live coaching sessions: rep counts, form feedback, and per-session tempo statistics."),
	)

	h := &handlers{sessions: sessions, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetSessionSummary, Handler: h.getSessionSummary},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	sessions *session.Manager
	log      *slog.Logger
}
