// Package mcpserver exposes read-only arena and wallet views as MCP tools
// over streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apppublic "wager-arena/internal/app/public"
	appsession "wager-arena/internal/app/session"
	appwallet "wager-arena/internal/app/wallet"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	publicSvc  *apppublic.Service
	sessionSvc *appsession.Service
	walletSvc  *appwallet.Service

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(publicSvc *apppublic.Service, sessionSvc *appsession.Service, walletSvc *appwallet.Service) *Server {
	mcpSrv := server.NewMCPServer(
		"wager-arena",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		publicSvc:  publicSvc,
		sessionSvc: sessionSvc,
		walletSvc:  walletSvc,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerPublicTools()
	s.registerWalletTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"session://{session_id}",
			"session_state",
			mcp.WithTemplateDescription("Live tic-tac-toe session by id"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			if !strings.HasPrefix(raw, "session://") {
				return nil, nil
			}
			view, err := s.sessionSvc.Get(strings.TrimPrefix(raw, "session://"))
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(view)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
