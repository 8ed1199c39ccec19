// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/taskdash/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with table-data tools and optional screen-config tools.
func NewHandler(cfg Config, tables common.TableDataService, configs common.ScreenConfigService) (*Handler, error) {
	if tables == nil {
		return nil, fmt.Errorf("table data service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerTableDataTools(mcpSrv, tables)
	if configs != nil {
		registerScreenConfigTools(mcpSrv, configs)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "taskdash"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerTableDataTools registers the fetch and row-action tools.
func registerTableDataTools(srv *mcpserver.MCPServer, tables common.TableDataService) {
	srv.AddTool(
		mcp.NewTool(
			"taskdash.fetch_section",
			mcp.WithDescription("Return table data for one section title, or every section plus the screen config for the my-work key."),
			mcp.WithString("key", mcp.Required(), mcp.Description("Section title or my-work key")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			key, err := req.RequireString("key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resp, err := tables.FetchSection(ctx, common.FetchSectionRequest{Key: key})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(resp)
			if err != nil {
				return nil, fmt.Errorf("encode fetch_section result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskdash.fetch_group",
			mcp.WithDescription("Return grouped table data for one group title."),
			mcp.WithString("group", mcp.Required(), mcp.Description("Group title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			group, err := req.RequireString("group")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resp, err := tables.FetchGroup(ctx, common.FetchGroupRequest{Group: group})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(resp)
			if err != nil {
				return nil, fmt.Errorf("encode fetch_group result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskdash.apply_action",
			mcp.WithDescription("Apply one workflow action to a work item."),
			mcp.WithString("work_item_id", mcp.Required(), mcp.Description("Work item identifier")),
			mcp.WithString("action", mcp.Required(), mcp.Description("Workflow action"), mcp.Enum("approve", "reject", "claim", "release")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("work_item_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			action, err := req.RequireString("action")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			res, err := tables.ApplyAction(ctx, common.ApplyActionRequest{WorkItemID: id, Action: action})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode apply_action result: %w", err)
			}
			return result, nil
		},
	)
}

// registerScreenConfigTools registers the screen config read and write tools.
func registerScreenConfigTools(srv *mcpserver.MCPServer, configs common.ScreenConfigService) {
	srv.AddTool(
		mcp.NewTool(
			"taskdash.get_screen_config",
			mcp.WithDescription("Return the stored my-work screen config JSON."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			raw, err := configs.GetScreenConfig(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return mcp.NewToolResultText(raw), nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskdash.save_screen_config",
			mcp.WithDescription("Validate and replace the my-work screen config JSON."),
			mcp.WithString("data", mcp.Required(), mcp.Description("Screen config JSON document")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			data, err := req.RequireString("data")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := configs.SaveScreenConfig(ctx, data); err != nil {
				return toolResultFromError(err), nil
			}
			return mcp.NewToolResultText("saved"), nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("invalid_transition: " + err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
