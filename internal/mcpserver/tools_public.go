package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPublicTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_open_games",
			mcp.WithDescription("List sessions waiting for an opponent"),
		),
		s.handleListOpenGames,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_arena_stats",
			mcp.WithDescription("Lobby size and live session counts by status"),
		),
		s.handleArenaStats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_session",
			mcp.WithDescription("Get a live session by id"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleGetSession,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"find_player_sessions",
			mcp.WithDescription("List live sessions a player takes part in"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("Player id")),
		),
		s.handleFindPlayerSessions,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"recent_results",
			mcp.WithDescription("Recently finished games, newest first"),
			mcp.WithNumber("limit", mcp.Description("Max results, default 20, max 100")),
		),
		s.handleRecentResults,
	)
}

func (s *Server) handleListOpenGames(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.publicSvc.Games()), nil
}

func (s *Server) handleArenaStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.publicSvc.Stats()), nil
}

func (s *Server) handleGetSession(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	view, svcErr := s.sessionSvc.Get(id)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(view), nil
}

func (s *Server) handleFindPlayerSessions(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	items, svcErr := s.sessionSvc.FindByUser(userID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(map[string]any{"items": items}), nil
}

func (s *Server) handleRecentResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, limit := clampPage(1, request.GetInt("limit", defaultResultsLimit), defaultResultsLimit, maxResultsLimit)
	resp, err := s.publicSvc.Results(ctx, int64(limit))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}
