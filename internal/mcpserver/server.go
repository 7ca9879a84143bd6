// Package mcpserver exposes the workspace registry, gateway and OAuth flows
// as MCP tools.
//
// Every tool answers with a single text block. Failures are reported as an
// "Error: ..." result rather than a protocol error, and a panic inside one
// tool call is recovered and reported the same way.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/inovacc/slack-mcp/internal/application"
	"github.com/inovacc/slack-mcp/internal/gateway"
	"github.com/inovacc/slack-mcp/internal/oauth"
	"github.com/inovacc/slack-mcp/internal/registry"
	"github.com/inovacc/slack-mcp/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Authorizer starts OAuth flows.
type Authorizer interface {
	Start(ctx context.Context, req oauth.Request) (*oauth.Pending, error)
}

// Deps are the collaborators the tools operate on.
type Deps struct {
	Registry *registry.Registry
	Gateway  *gateway.Gateway
	Store    store.Store
	OAuth    Authorizer
	Logger   *slog.Logger
}

// Server is the MCP tool server.
type Server struct {
	server   *mcp.Server
	registry *registry.Registry
	gateway  *gateway.Gateway
	store    store.Store
	oauth    Authorizer
	logger   *slog.Logger

	mu       sync.Mutex
	lifetime context.Context
	pending  sync.WaitGroup
}

// New creates the server and registers every tool.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    application.AppName,
			Version: application.AppVersion,
		}, nil),
		registry: deps.Registry,
		gateway:  deps.Gateway,
		store:    deps.Store,
		oauth:    deps.OAuth,
		logger:   logger,
		lifetime: context.Background(),
	}

	s.registerTools()

	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
// Background OAuth completions are bound to ctx.
func (s *Server) Run(ctx context.Context) error {
	s.setLifetime(ctx)

	s.logger.Info("mcp server starting", "workspaces", len(s.registry.List()))

	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t; used with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	s.setLifetime(ctx)

	return s.server.Connect(ctx, t, nil)
}

// Wait blocks until every background OAuth completion has returned.
func (s *Server) Wait() {
	s.pending.Wait()
}

func (s *Server) setLifetime(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lifetime = ctx
}

func (s *Server) background() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lifetime
}

// handler is a tool body; it returns the text shown to the caller.
type handler[In any] func(ctx context.Context, in In) (string, error)

// addTool registers h under name with the recovery and error boundary.
func addTool[In any](s *Server, name, description string, h handler[In]) {
	mcp.AddTool(s.server, &mcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
			return invoke(ctx, s.logger, name, in, h), nil, nil
		})
}

func invoke[In any](ctx context.Context, logger *slog.Logger, name string, in In, h handler[In]) (res *mcp.CallToolResult) {
	logger = logger.With("tool", name, "call_id", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", "panic", r, "stack", string(debug.Stack()))
			res = errorResult(fmt.Errorf("internal error in %s", name))
		}
	}()

	logger.Debug("tool call")

	text, err := h(ctx, in)
	if err != nil {
		logger.Warn("tool failed", "error", err)
		return errorResult(err)
	}

	return textResult(text)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
	}
}
