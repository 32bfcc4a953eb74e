package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerWalletTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_wallet",
			mcp.WithDescription("Current balance of a player"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("Player id")),
		),
		s.handleGetWallet,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_wallet_transactions",
			mcp.WithDescription("Ledger history of a player, newest first"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("Player id")),
			mcp.WithNumber("page", mcp.Description("1-based page, default 1")),
			mcp.WithNumber("limit", mcp.Description("Page size, default 10, max 100")),
		),
		s.handleWalletTransactions,
	)
}

func (s *Server) handleGetWallet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.walletSvc.Wallet(ctx, userID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleWalletTransactions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	page, limit := clampPage(request.GetInt("page", 1), request.GetInt("limit", defaultHistoryLimit), defaultHistoryLimit, maxHistoryLimit)
	resp, svcErr := s.walletSvc.Transactions(ctx, userID, page, limit)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
