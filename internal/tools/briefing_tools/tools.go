package briefing_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agentpark/internal/news"
	"github.com/teemow/agentpark/internal/server"
	"github.com/teemow/agentpark/internal/tools/common"
)

// Tool names.
const (
	ToolMorningBriefing = "morning_briefing"
	ToolWeatherSummary  = "weather_summary"
	ToolTopNews         = "top_news"
)

// News sections accepted by the top_news tool.
const (
	SectionGlobalPolitics = "global_politics"
	SectionTechnology     = "technology"
)

// Tools returns the briefing tool definitions.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolMorningBriefing,
			mcp.WithDescription("Compose today's morning briefing: weather, top news, calendar events and package updates, as text to be read aloud"),
		),
		mcp.NewTool(ToolWeatherSummary,
			mcp.WithDescription("Current weather at home, e.g. 'light rain, currently 54°F with a high of 58 and low of 49'"),
		),
		mcp.NewTool(ToolTopNews,
			mcp.WithDescription("Top New York Times stories as JSON, grouped into global_politics and technology"),
			mcp.WithString("section",
				mcp.Description("Only return one section: 'global_politics' or 'technology' (default: both)"),
			),
		),
	}
}

// RegisterBriefingTools registers the briefing tools with the MCP server.
func RegisterBriefingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}

	handlers := map[string]common.ToolHandler{
		ToolMorningBriefing: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMorningBriefing(ctx, request, sc)
		},
		ToolWeatherSummary: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleWeatherSummary(ctx, request, sc)
		},
		ToolTopNews: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTopNews(ctx, request, sc)
		},
	}

	for _, tool := range Tools() {
		handler, ok := handlers[tool.Name]
		if !ok {
			return fmt.Errorf("no handler for tool %s", tool.Name)
		}
		s.AddTool(tool, common.InstrumentedToolHandler(tool.Name, sc, handler))
	}
	return nil
}

func handleMorningBriefing(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(sc.Composer().Compose(ctx)), nil
}

func handleWeatherSummary(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(sc.Composer().Weather(ctx)), nil
}

func handleTopNews(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	section := ""
	if v, ok := request.GetArguments()["section"].(string); ok {
		section = strings.ToLower(strings.TrimSpace(v))
	}
	if section != "" && section != SectionGlobalPolitics && section != SectionTechnology {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown section %q: use %q or %q", section, SectionGlobalPolitics, SectionTechnology)), nil
	}

	digest := sc.Composer().News(ctx)

	var payload any = digest
	switch section {
	case SectionGlobalPolitics:
		payload = map[string][]news.Item{SectionGlobalPolitics: digest.GlobalPolitics}
	case SectionTechnology:
		payload = map[string][]news.Item{SectionTechnology: digest.Technology}
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode news: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
