package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/rachid48133/studygenie/internal/models"
	"github.com/rachid48133/studygenie/internal/rag"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing course question answering tools",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	r, _, err := newPipeline(true)
	if err != nil {
		return err
	}

	s := mcpserver.NewMCPServer("studygenie", "1.0.0", mcpserver.WithToolCapabilities(false))
	s.AddTool(askCourseTool(), makeAskHandler(r))
	s.AddTool(searchCourseTool(), makeSearchHandler(r))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(false),
	OpenWorldHint:   mcp.ToBoolPtr(true),
}

func askCourseTool() mcp.Tool {
	return mcp.NewTool("ask_course",
		mcp.WithDescription("Answer a question using only the content of an indexed course. Returns the answer, its confidence and the cited pages."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("course",
			mcp.Required(),
			mcp.Description("Identifier of the indexed course"),
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question or exercise statement"),
		),
		mcp.WithString("language",
			mcp.Description("Answer language: fr (default) or en"),
		),
		mcp.WithString("plan",
			mcp.Description("Subscription plan selecting the model (free, basic, pro, premium)"),
		),
	)
}

func searchCourseTool() mcp.Tool {
	return mcp.NewTool("search_course",
		mcp.WithDescription("Return the course passages closest to a query, with their page or slide."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("course",
			mcp.Required(),
			mcp.Description("Identifier of the indexed course"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of passages to return (default 5)"),
		),
	)
}

func makeAskHandler(r *rag.RAG) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		course := req.GetString("course", "")
		question := req.GetString("question", "")
		if course == "" || question == "" {
			return mcp.NewToolResultError("course and question are required"), nil
		}

		res, err := r.Answer(ctx, rag.AnswerRequest{
			UserID:   flagUser,
			CourseID: course,
			Question: question,
			Plan:     req.GetString("plan", ""),
			Language: req.GetString("language", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatAnswer(res)), nil
	}
}

func makeSearchHandler(r *rag.RAG) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		course := req.GetString("course", "")
		query := req.GetString("query", "")
		if course == "" || query == "" {
			return mcp.NewToolResultError("course and query are required"), nil
		}
		k := req.GetInt("k", 5)
		if k <= 0 {
			k = 5
		}

		chunks, _, err := r.Retrieve(ctx, flagUser, course, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatPassages(query, chunks)), nil
	}
}

func formatAnswer(res *models.AnswerResult) string {
	var sb strings.Builder
	sb.WriteString(res.Answer)
	fmt.Fprintf(&sb, "\n\n---\n**Confidence:** %.0f%%  \n**Completeness:** %d/100  \n**Model:** %s\n",
		res.Confidence*100, res.Validation.Score, res.ModelUsed)
	if len(res.Sources) > 0 {
		sb.WriteString("\n**Sources:**\n")
		for _, s := range res.Sources {
			page := "N/A"
			if s.Page != nil {
				page = fmt.Sprintf("page %d", *s.Page)
			}
			fmt.Fprintf(&sb, "- %s: %s\n", page, s.Text)
		}
	}
	return sb.String()
}

func formatPassages(query string, chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf("No passages found for %q.", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Passages for %q (%d)\n\n", query, len(chunks))
	for _, c := range chunks {
		fmt.Fprintf(&sb, "### %d. %s (distance %.3f)\n\n%s\n\n", c.Rank, c.Location, c.Distance, c.Text)
	}
	return sb.String()
}
