// attend-mcp exposes read-only MCP tools over the attend database so
// assistant tooling can answer "how is my day going" without touching
// the daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mtholden/attend/internal/config"
	"github.com/mtholden/attend/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	s := server.NewMCPServer(
		"attend-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(dailyStatsTool(), handleDailyStats(st))
	s.AddTool(topDomainsTool(), handleTopDomains(st))
	s.AddTool(classifyDomainTool(), handleClassifyDomain(st))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func dayArg(args map[string]any) string {
	day, _ := args["day"].(string)
	if day == "" {
		day = store.DayKey(time.Now())
	}
	return day
}

func dailyStatsTool() mcp.Tool {
	return mcp.NewTool("get_daily_stats",
		mcp.WithDescription("Get the focus statistics snapshot for a day: total/productive/distraction/neutral time, session count, and goal progress."),
		mcp.WithString("day",
			mcp.Description("Calendar day as YYYY-MM-DD. Default: today."),
		),
	)
}

func handleDailyStats(st *store.Store) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		day := dayArg(args)

		snap, err := st.Snapshot(ctx, day)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read snapshot: %v", err)), nil
		}

		out := fmt.Sprintf("Stats for %s:\nTotal: %s\nProductive: %s\nDistraction: %s\nNeutral: %s\nSessions: %d\nGoal progress: %d%%",
			day, snap.Total.Round(time.Second), snap.Productive.Round(time.Second),
			snap.Distraction.Round(time.Second), snap.Neutral.Round(time.Second),
			snap.SessionCount, snap.GoalProgressPct)
		return mcp.NewToolResultText(out), nil
	}
}

func topDomainsTool() mcp.Tool {
	return mcp.NewTool("get_top_domains",
		mcp.WithDescription("Get the domains with the most tracked time for a day, in descending order."),
		mcp.WithString("day",
			mcp.Description("Calendar day as YYYY-MM-DD. Default: today."),
		),
	)
}

func handleTopDomains(st *store.Store) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		day := dayArg(args)

		snap, err := st.Snapshot(ctx, day)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read snapshot: %v", err)), nil
		}
		if len(snap.TopDomains) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No tracked time for %s.", day)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Top domains for %s:\n", day)
		for i, dt := range snap.TopDomains {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, dt.Domain, dt.Duration.Round(time.Second))
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func classifyDomainTool() mcp.Tool {
	return mcp.NewTool("classify_domain",
		mcp.WithDescription("Look up the cached productivity classification for a domain."),
		mcp.WithString("domain",
			mcp.Required(),
			mcp.Description("Domain to look up, e.g. github.com"),
		),
	)
}

func handleClassifyDomain(st *store.Store) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		domain, _ := args["domain"].(string)
		if domain == "" {
			return mcp.NewToolResultError("domain is required"), nil
		}

		dc, err := st.Classification(ctx, domain)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read classification: %v", err)), nil
		}
		if dc == nil {
			return mcp.NewToolResultText(fmt.Sprintf("%s is not classified yet.", domain)), nil
		}

		out := fmt.Sprintf("%s: %s (confidence %.2f, source %s, updated %s)",
			dc.Domain, dc.Classification, dc.Confidence, dc.Source,
			dc.UpdatedAt.Format("2006-01-02 15:04"))
		return mcp.NewToolResultText(out), nil
	}
}
