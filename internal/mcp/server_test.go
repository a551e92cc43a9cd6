package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/claude/formcoach/internal/analysis"
	"github.com/claude/formcoach/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

func testHandlers() (*handlers, *session.Manager) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(analysis.NewRegistry(), log)
	return &handlers{sessions: sessions, log: log}, sessions
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// TestListExercisesTool verifies the exercise catalog tool.
func TestListExercisesTool(t *testing.T) {
	h, _ := testHandlers()

	result, err := h.listExercises(context.Background(), toolRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result)
	}
}

// TestGetSessionToolMissingID verifies the required-parameter error.
func TestGetSessionToolMissingID(t *testing.T) {
	h, _ := testHandlers()

	result, err := h.getSession(context.Background(), toolRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing session_id")
	}
}

// TestGetSessionToolUnknown verifies the not-found tool error.
func TestGetSessionToolUnknown(t *testing.T) {
	h, _ := testHandlers()

	result, err := h.getSession(context.Background(), toolRequest(map[string]any{"session_id": "nope"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown session")
	}
}

// TestGetSessionTool verifies the happy path against a live session.
func TestGetSessionTool(t *testing.T) {
	h, sessions := testHandlers()
	s := sessions.Create("squat")

	result, err := h.getSession(context.Background(), toolRequest(map[string]any{"session_id": s.ID}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result)
	}
}

// TestGetSessionSummaryTool verifies the summary tool happy path.
func TestGetSessionSummaryTool(t *testing.T) {
	h, sessions := testHandlers()
	s := sessions.Create("pushup")

	result, err := h.getSessionSummary(context.Background(), toolRequest(map[string]any{"session_id": s.ID}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result)
	}
}

// TestNewRegistersTools verifies server construction.
func TestNewRegistersTools(t *testing.T) {
	_, sessions := testHandlers()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if srv := New(sessions, "test", log); srv == nil {
		t.Fatal("expected MCP server")
	}
}
