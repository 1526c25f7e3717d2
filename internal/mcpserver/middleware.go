package mcpserver

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// loggingMiddleware logs every tool call's duration and outcome, grounded
// on the teacher's pkg/mcp/middleware.go (the same wrap-next-handler shape,
// narrowed to slog instead of a bespoke JSONL sink since tspack's ambient
// logging is already slog-based throughout).
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			result, err := next(ctx, req)
			s.logger.Debug("mcp tool call",
				"tool", req.Params.Name,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return result, err
		}
	}
}
