// Package mcpserver exposes the persona as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lazypower/persona/internal/engine"
	"github.com/lazypower/persona/internal/memory"
)

// New builds an MCP server with every persona tool registered.
func New(eng *engine.Engine, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "persona-mcp",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat",
		Description: "Talk to the persona. It recalls related memories, answers in character and learns from the exchange.",
	}, chatHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store a memory directly. Emotion and importance (0.0-1.0) set how strongly it is held.",
	}, rememberHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall",
		Description: "Find memories related to a query by word overlap. Recalling a memory strengthens it.",
	}, recallHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "advance_day",
		Description: "Let a simulated day pass: memories decay, the mind wanders, and every third day sleep consolidates them.",
	}, advanceDayHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Memory statistics: totals, average strength, strong and weak counts, days lived.",
	}, statsHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "status",
		Description: "Full psychological status: time awareness, personality, emotions and memory.",
	}, statusHandler(eng))

	return server
}

// Run serves the persona on stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, eng *engine.Engine, version string) error {
	return New(eng, version).Run(ctx, &mcp.StdioTransport{})
}

// --- Input types ---

type chatInput struct {
	Message string `json:"message" jsonschema:"What to say to the persona"`
}

type rememberInput struct {
	Content    string   `json:"content"              jsonschema:"The memory, in the persona's own words"`
	Emotion    *float64 `json:"emotion,omitempty"    jsonschema:"Emotional weight 0.0-1.0 (default 0.5)"`
	Importance *float64 `json:"importance,omitempty" jsonschema:"Importance 0.0-1.0 (default 0.5)"`
	Context    string   `json:"context,omitempty"    jsonschema:"Context tag, e.g. identity, conversation (default general)"`
}

type recallInput struct {
	Query string `json:"query" jsonschema:"Words to look for in memories"`
}

type emptyInput struct{}

// --- Handlers ---

func chatHandler(eng *engine.Engine) func(context.Context, *mcp.CallToolRequest, chatInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input chatInput) (*mcp.CallToolResult, any, error) {
		if input.Message == "" {
			return errorResult("message required"), nil, nil
		}
		reply, err := eng.Chat(ctx, input.Message)
		if err != nil {
			return errorResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		learned := 0
		if !reply.Ghost {
			recs, err := eng.Learn(ctx, input.Message, reply.Response)
			if err != nil {
				eng.Log.Error("learn save failed", "err", err)
			}
			learned = len(recs)
		}
		return textResult(jsonString(map[string]any{
			"response": reply.Response,
			"recalled": memoriesToMaps(eng, reply.Recalled),
			"learned":  learned,
			"mode":     reply.Mode,
		})), nil, nil
	}
}

func rememberHandler(eng *engine.Engine) func(context.Context, *mcp.CallToolRequest, rememberInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input rememberInput) (*mcp.CallToolResult, any, error) {
		if input.Content == "" {
			return errorResult("content required"), nil, nil
		}
		emotion, importance := 0.5, 0.5
		if input.Emotion != nil {
			emotion = *input.Emotion
		}
		if input.Importance != nil {
			importance = *input.Importance
		}
		if emotion < 0 || emotion > 1 || importance < 0 || importance > 1 {
			return errorResult("emotion and importance must be within [0,1]"), nil, nil
		}
		rec, err := eng.Remember(input.Content, emotion, importance, input.Context)
		if err != nil {
			return errorResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(map[string]any{
			"memory_id": rec.ID,
			"status":    "stored",
		})), nil, nil
	}
}

func recallHandler(eng *engine.Engine) func(context.Context, *mcp.CallToolRequest, recallInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input recallInput) (*mcp.CallToolResult, any, error) {
		if input.Query == "" {
			return errorResult("query required"), nil, nil
		}
		return textResult(jsonString(memoriesToMaps(eng, eng.Recall(input.Query)))), nil, nil
	}
}

func advanceDayHandler(eng *engine.Engine) func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		report, err := eng.AdvanceDay()
		if err != nil {
			return errorResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(report)), nil, nil
	}
}

func statsHandler(eng *engine.Engine) func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return textResult(jsonString(eng.Stats())), nil, nil
	}
}

func statusHandler(eng *engine.Engine) func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return textResult(jsonString(eng.Status())), nil, nil
	}
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}

func memoriesToMaps(eng *engine.Engine, recs []memory.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		strength, _ := eng.Memory.Strength(r.ID)
		out[i] = map[string]any{
			"id":       r.ID,
			"content":  r.Content,
			"context":  r.Context,
			"strength": strength,
		}
	}
	return out
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
