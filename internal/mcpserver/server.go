// Package mcpserver exposes the assistant's tool catalog and pending
// reminders to MCP clients, for operators poking at the bot from an editor.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/gnomo/internal/agent/tools"
	"github.com/kalambet/gnomo/internal/reminder"
)

const pendingRemindersURI = "reminders://pending"

// Operator is the identity tool calls run under.
var Operator = tools.UserInfo{UserID: "mcp", Username: "operador"}

// PendingLister lists reminders not yet delivered.
type PendingLister interface {
	Pending(ctx context.Context) []reminder.Reminder
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	Catalog   *tools.Catalog
	Reminders PendingLister // optional; without it the reminders resource is not registered
	Version   string
}

// New creates an MCP server with every catalog tool registered. Tools run
// without a guild or channel, so guild tools answer with their "no access"
// result and reminders cannot be created.
func New(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"gnomo",
		deps.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("gnomo: the Discord gnome's tools (phrases, images, web search, member lookup, reminders)."),
		server.WithRecovery(),
	)

	for _, t := range deps.Catalog.Tools() {
		s.AddTool(toolDefinition(t), callTool(deps.Catalog, t.Name()))
	}

	if deps.Reminders != nil {
		s.AddResource(
			mcp.NewResource(
				pendingRemindersURI,
				"Pending reminders",
				mcp.WithResourceDescription("Reminders waiting to be delivered, earliest first"),
				mcp.WithMIMEType("application/json"),
			),
			pendingReminders(deps.Reminders),
		)
	}
	return s
}

func toolDefinition(t tools.Tool) mcp.Tool {
	schema, err := json.Marshal(t.Parameters())
	if err != nil {
		schema = []byte(`{"type":"object","properties":{}}`)
	}
	return mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema)
}

func callTool(catalog *tools.Catalog, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return mcpError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if string(args) == "null" {
			args = nil
		}

		user := Operator
		res := catalog.Execute(ctx, name, args, tools.Context{User: &user})
		if !res.Success {
			return mcpError(res.LLMContent()), nil
		}
		return mcpText(res.LLMContent()), nil
	}
}

func pendingReminders(lister PendingLister) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		pending := lister.Pending(ctx)
		if pending == nil {
			pending = []reminder.Reminder{}
		}
		b, err := json.Marshal(pending)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reminders: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
