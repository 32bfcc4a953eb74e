package mcpserver

import (
	"errors"
	"fmt"

	apppublic "wager-arena/internal/app/public"
	appsession "wager-arena/internal/app/session"
	appwallet "wager-arena/internal/app/wallet"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func mapDomainError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.Is(err, appsession.ErrInvalidRequest),
		errors.Is(err, appwallet.ErrInvalidRequest):
		return toolError("invalid_request", err.Error())
	case errors.Is(err, appsession.ErrSessionNotFound):
		return toolError("session_not_found", err.Error())
	case errors.Is(err, apppublic.ErrResultsUnavailable):
		return toolError("results_unavailable", "results mirror is not configured")
	default:
		return toolError("internal_error", err.Error())
	}
}
