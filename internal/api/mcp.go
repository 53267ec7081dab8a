package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/askdb/internal/kb"
)

const schemaResourceURI = "schema://current"

// NewMCPServer creates an MCP server exposing the ask tool and the schema
// resource.
func NewMCPServer(svc KnowledgeBase, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"askdb",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("askdb answers questions about tabular business data: curated FAQ first, then generated SQL."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a natural-language question from the FAQ or by querying the tables. Returns {source, data, confidence}."),
			mcp.WithString("query", mcp.Description("The question"), mcp.Required()),
		),
		mcpAsk(svc),
	)

	s.AddResource(
		mcp.NewResource(
			schemaResourceURI,
			"Table Schema",
			mcp.WithResourceDescription("One line per table: name(column TYPE, ...)"),
			mcp.WithMIMEType("text/plain"),
		),
		mcpResourceSchema(svc),
	)

	return s
}

func mcpAsk(svc KnowledgeBase) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || query == "" {
			return mcpError("query is required"), nil
		}

		res, err := svc.Ask(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}

		b, err := json.Marshal(kb.NewAnswer(res))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceSchema(svc KnowledgeBase) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if svc.Version() == "" {
			return nil, kb.ErrNotReady
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     svc.Schema(),
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
