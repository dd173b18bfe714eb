package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const mcpMaxListed = 100

// NewMCPServer exposes read-only document tools and document chat to MCP clients.
func NewMCPServer(svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		"intellidocs",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("IntelliDocs: classified documents, extracted key-value pairs and document chat."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_documents",
			mcp.WithDescription("List documents, newest first, optionally restricted to one category."),
			mcp.WithString("category_id", mcp.Description("Category id to filter by")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of documents (default 20)")),
		),
		mcpListDocuments(svc),
	)

	s.AddTool(
		mcp.NewTool("get_document",
			mcp.WithDescription("Fetch one document with its extracted key-value pairs."),
			mcp.WithString("id", mcp.Description("Document id"), mcp.Required()),
		),
		mcpGetDocument(svc),
	)

	s.AddTool(
		mcp.NewTool("ask_document",
			mcp.WithDescription("Ask a question about one document's text or its key-value pairs."),
			mcp.WithString("id", mcp.Description("Document id"), mcp.Required()),
			mcp.WithString("query", mcp.Description("The question"), mcp.Required()),
			mcp.WithString("mode", mcp.Description("general (default) or kv"), mcp.Enum("general", "kv")),
		),
		mcpAskDocument(svc),
	)

	s.AddTool(
		mcp.NewTool("list_categories",
			mcp.WithDescription("List registered categories with their document counts."),
		),
		mcpListCategories(svc),
	)

	return s
}

// mcpDocument is the document view returned to MCP clients; text and embedding are left out.
type mcpDocument struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	Status     string            `json:"status"`
	CategoryID string            `json:"category_id,omitempty"`
	KeyValues  []domain.KeyValue `json:"kv_data"`
	Error      string            `json:"error,omitempty"`
}

func toMCPDocument(doc domain.Document) mcpDocument {
	kvs := doc.KeyValues
	if kvs == nil {
		kvs = []domain.KeyValue{}
	}
	return mcpDocument{
		ID:         doc.ID,
		Filename:   doc.Filename,
		Status:     string(doc.Status),
		CategoryID: doc.CategoryID,
		KeyValues:  kvs,
		Error:      doc.Error,
	}
}

func mcpListDocuments(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > mcpMaxListed {
			limit = mcpMaxListed
		}

		docs, err := svc.Documents.List(ctx, domain.DocumentFilter{CategoryID: req.GetString("category_id", "")})
		if err != nil {
			return mcpError(fmt.Sprintf("list documents failed: %v", err)), nil
		}
		if len(docs) > limit {
			docs = docs[:limit]
		}
		out := make([]mcpDocument, 0, len(docs))
		for _, doc := range docs {
			out = append(out, toMCPDocument(doc))
		}
		return mcpJSON(out)
	}
}

func mcpGetDocument(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		doc, err := svc.Documents.GetByID(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("get document failed: %v", err)), nil
		}
		return mcpJSON(toMCPDocument(*doc))
	}
}

func mcpAskDocument(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		mode := domain.ChatMode(req.GetString("mode", string(domain.ChatGeneral)))

		answer, err := svc.Chat.Ask(ctx, domain.ChatQuestion{DocumentID: id, Query: query, Mode: mode})
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return mcpText(answer.Answer), nil
	}
}

func mcpListCategories(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		categories, err := svc.Categories.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("list categories failed: %v", err)), nil
		}
		return mcpJSON(categories)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
