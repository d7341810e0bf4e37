// Package mcpserver provides the Model Context Protocol (MCP) server
// implementation.
//
// The mcpserver package implements an MCP-compliant server that brokers
// tool calls into Google Cloud operations. It uses the mark3labs/mcp-go
// library to handle the protocol details and exposes the run-gcp-code tool
// as the primary interface for sandboxed code execution, alongside thin
// project-management tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/gcpbox/gcpbox/capability"
	"github.com/gcpbox/gcpbox/config"
	"github.com/gcpbox/gcpbox/engine"
	"github.com/gcpbox/gcpbox/retry"
	"github.com/gcpbox/gcpbox/selection"
)

// CodeRunner executes sandboxed code fragments. The engine implements it.
type CodeRunner interface {
	Execute(ctx context.Context, req engine.Request) engine.Outcome
}

// CapabilityResolver looks up capability factories for the thin handlers.
// The capability registry implements it.
type CapabilityResolver interface {
	Resolve(name string) (capability.Factory, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	config     *config.Config
	logger     *zap.Logger
	runner     CodeRunner
	resolver   CapabilityResolver
	store      *selection.Store
	supervisor *retry.Supervisor
	mcpServer  *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, runner CodeRunner, resolver CapabilityResolver, store *selection.Store, supervisor *retry.Supervisor) (*MCPServer, error) {
	s := &MCPServer{
		config:     cfg,
		logger:     logger,
		runner:     runner,
		resolver:   resolver,
		store:      store,
		supervisor: supervisor,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.Int("engine.timeout_sec", cfg.Engine.TimeoutSec),
		zap.Int("engine.max_attempts", cfg.Engine.MaxAttempts),
		zap.Int("engine.retry_delay_ms", cfg.Engine.RetryDelayMS),
		zap.String("gcp.default_region", cfg.GCP.DefaultRegion),
		zap.Bool("gcp.credentials_file_set", cfg.GCP.CredentialsFile != ""),
	)

	s.mcpServer = server.NewMCPServer("gcpbox", "A Google Cloud request broker with sandboxed code execution")

	s.registerRunGCPCodeTool()
	s.registerSelectProjectTool()
	s.registerListProjectsTool()
	s.registerSelectedProjectTool()

	return s, nil
}

// registerRunGCPCodeTool registers the run-gcp-code tool
func (s *MCPServer) registerRunGCPCodeTool() {
	tool := mcp.Tool{
		Name:        "run-gcp-code",
		Description: "Execute JavaScript against Google Cloud capabilities in a sandbox. The fragment must produce its result with a top-level return statement and reaches Google Cloud only through require(), e.g. require(\"compute\").",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "JavaScript fragment to execute",
				},
				"projectId": map[string]any{
					"type":        "string",
					"description": "Target project; defaults to the selected project",
				},
				"region": map[string]any{
					"type":        "string",
					"description": "Target region; defaults to the selected region",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunGCPCode)
}

// registerSelectProjectTool registers the select-project tool
func (s *MCPServer) registerSelectProjectTool() {
	tool := mcp.Tool{
		Name:        "select-project",
		Description: "Select the Google Cloud project (and optionally region) used by subsequent calls",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"projectId": map[string]any{
					"type":        "string",
					"description": "Project identifier to select",
				},
				"region": map[string]any{
					"type":        "string",
					"description": "Region to select (optional)",
				},
			},
			Required: []string{"projectId"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleSelectProject)
}

// registerListProjectsTool registers the list-projects tool
func (s *MCPServer) registerListProjectsTool() {
	tool := mcp.Tool{
		Name:        "list-projects",
		Description: "List the Google Cloud projects visible to the configured credential",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleListProjects)
}

// registerSelectedProjectTool registers the selected-project tool
func (s *MCPServer) registerSelectedProjectTool() {
	tool := mcp.Tool{
		Name:        "selected-project",
		Description: "Report the currently selected project and region",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleSelectedProject)
}

// handleRunGCPCode handles the run-gcp-code tool
func (s *MCPServer) handleRunGCPCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	req := engine.Request{
		Source:    code,
		ProjectID: request.GetString("projectId", ""),
		RegionID:  request.GetString("region", ""),
	}

	s.logger.Info("code execution requested",
		zap.Bool("explicit_project", req.ProjectID != ""),
		zap.Bool("explicit_region", req.RegionID != ""))

	// The supervisor re-invokes only retryable outcomes; a defective
	// fragment is permanent and fails on the first attempt.
	var out engine.Outcome
	_ = s.supervisor.Do(ctx, func() error {
		out = s.runner.Execute(ctx, req)
		if out.Err == nil {
			return nil
		}
		if out.Err.Retryable() {
			return out.Err
		}
		return retry.Permanent(out.Err)
	})

	return outcomeResult(out), nil
}

// handleSelectProject handles the select-project tool
func (s *MCPServer) handleSelectProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("projectId")
	if err != nil {
		return nil, fmt.Errorf("projectId parameter is required: %w", err)
	}
	region := request.GetString("region", "")

	// Confirm the project exists before recording the selection.
	projects, err := s.projectsInstance(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("project lookup unavailable: %v", err)), nil
	}
	project, err := projects.Call(ctx, "get", []any{projectID})
	if err != nil {
		return errorResult(fmt.Sprintf("cannot select project %s: %v", projectID, err)), nil
	}

	if err := s.store.Select(projectID, region); err != nil {
		return errorResult(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"selectedProject": projectID,
		"selectedRegion":  s.store.Region(),
		"project":         project,
	}), nil
}

// handleListProjects handles the list-projects tool
func (s *MCPServer) handleListProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.projectsInstance(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("project lookup unavailable: %v", err)), nil
	}
	list, err := projects.Call(ctx, "list", nil)
	if err != nil {
		return errorResult(fmt.Sprintf("listing projects failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"projects": list}), nil
}

// handleSelectedProject handles the selected-project tool
func (s *MCPServer) handleSelectedProject(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var selected any
	if project, ok := s.store.Project(); ok {
		selected = project
	}
	return jsonResult(map[string]any{
		"selectedProject": selected,
		"selectedRegion":  s.store.Region(),
	}), nil
}

// projectsInstance constructs the shared project-lookup capability for the
// thin handlers.
func (s *MCPServer) projectsInstance(ctx context.Context) (capability.Instance, error) {
	factory, err := s.resolver.Resolve("projects")
	if err != nil {
		return nil, err
	}
	return factory.New(ctx, capability.Env{Region: s.store.Region()})
}

// outcomeResult serializes an execution outcome into tool content. Failures
// carry the error kind and message so callers can build a meaningful
// response without inspecting internals.
func outcomeResult(out engine.Outcome) *mcp.CallToolResult {
	logs := out.Logs
	if logs == nil {
		logs = []string{}
	}

	if out.Err != nil {
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]any{
				"kind":    string(out.Err.Kind),
				"message": out.Err.Message,
			},
			"logs": logs,
		})
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: string(payload)},
			},
			IsError: true,
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"result": out.Value,
		"logs":   logs,
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(payload)},
		},
	}
}

func jsonResult(payload map[string]any) *mcp.CallToolResult {
	raw, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(raw)},
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: message},
		},
		IsError: true,
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
