// Package mcpserver exposes a single `pack` MCP tool so an agent or editor
// integration can invoke pkg/pack.Pack over stdio, without shelling out to
// the CLI.
//
// Grounded on the teacher's pkg/mcp (Server wrapping *server.MCPServer,
// NewServer/ServeStdio, the logging middleware), narrowed from a dozen
// catalog-query tools down to the one tool this domain needs, and
// generalized to carry a request-scoped google/uuid ID (the teacher's
// mcplog request correlation used the tool call's own timestamp instead;
// tspack's pack calls are long enough — a full graph build — that
// correlating concurrent in-flight calls by ID, not just start time,
// matters).
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tspack/tspack/internal/diag"
	"github.com/tspack/tspack/internal/graph"
	"github.com/tspack/tspack/internal/obslog"
	"github.com/tspack/tspack/pkg/pack"
)

const serverVersion = "0.1.0-dev"

// Server implements the MCP server exposing tspack's pack operation.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer builds a Server. A nil logger discards log output.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = obslog.Nop()
	}
	s := &Server{logger: logger}

	s.mcpServer = server.NewMCPServer("tspack", serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.loggingMiddleware()),
	)

	s.mcpServer.AddTool(packTool(), s.handlePack)
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func packTool() mcp.Tool {
	return mcp.NewTool("pack",
		mcp.WithDescription("Bundle a TypeScript module graph into a single runtime JS file and a single .d.ts file"),
		mcp.WithString("entry_point", mcp.Required(), mcp.Description("Absolute specifier (file:// or http(s)://) of the root module")),
		mcp.WithString("import_map", mcp.Description("Absolute specifier of an import-map JSON file, if any")),
	)
}

func (s *Server) handlePack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := uuid.NewString()
	args := req.GetArguments()

	entryPoint, _ := args["entry_point"].(string)
	if entryPoint == "" {
		return mcp.NewToolResultError("entry_point is required"), nil
	}
	importMapSpecifier, _ := args["import_map"].(string)

	s.logger.Debug("pack request received", "request_id", requestID, "entry_point", entryPoint)

	fileLoader := graph.NewFileLoader(nil, s.logger)
	defer fileLoader.Close()
	httpLoader, err := graph.NewHTTPLoader(256, s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reporter := &diag.CollectingReporter{}

	var importMapJSON []byte
	if importMapSpecifier != "" {
		resp, err := fileLoader.Load(ctx, graph.ModuleSpecifier(importMapSpecifier), false)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading import map: %v", err)), nil
		}
		if resp.Module != nil {
			importMapJSON = resp.Module.Content
		}
	}

	out, err := pack.Pack(ctx, pack.Options{
		EntryPoint:          entryPoint,
		ImportMapJSON:       importMapJSON,
		ImportMapSpecifier:  importMapSpecifier,
		FileLoader:          fileLoader,
		HTTPLoader:          httpLoader,
		Reporter:            reporter,
		Logger:              s.logger,
	})
	if err != nil {
		s.logger.Warn("pack request failed", "request_id", requestID, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	diagLines := make([]string, 0, len(reporter.Diagnostics))
	for _, d := range reporter.Diagnostics {
		diagLines = append(diagLines, fmt.Sprintf("[%s] %s: %s", d.Kind, d.Specifier, d.Message))
	}

	result := map[string]any{
		"js":                 out.JS,
		"dts":                out.Dts,
		"import_map":         out.ImportMap,
		"has_default_export": out.HasDefaultExport,
		"diagnostics":        diagLines,
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
