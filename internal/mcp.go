package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		AppName+"-server",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("analyze_transcript",
		mcp.WithDescription("Analyze a video transcript for hook strategy, pacing, tone, structure and viral factors. Starts a new workflow run and returns the analysis with suggested topics. Call reset_workflow first if a run is already in progress."),
		mcp.WithString("transcript",
			mcp.Description("Full transcript text of a successful video"),
			mcp.Required(),
		),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool("generate_script",
		mcp.WithDescription("Write a new video script on a topic using the structure of the last analysis. Requires a successful analyze_transcript call. Returns title candidates, thumbnail ideas and the script in markdown."),
		mcp.WithString("topic",
			mcp.Description("Topic of the new video, e.g. one of the suggested topics"),
			mcp.Required(),
		),
		mcp.WithString("notes",
			mcp.Description("Optional extra instruction for the script"),
		),
	), s.handleGenerate)

	s.mcpServer.AddTool(mcp.NewTool("get_workflow_state",
		mcp.WithDescription("Return the current workflow state (step, analysis, script, error) as JSON."),
	), s.handleGetState)

	s.mcpServer.AddTool(mcp.NewTool("reset_workflow",
		mcp.WithDescription("Discard the current analysis and script and start over."),
	), s.handleReset)

	s.mcpServer.AddTool(mcp.NewTool("get_youtube_transcript",
		mcp.WithDescription("Get existing YouTube captions as plain text, ready for analyze_transcript. Fails if the video has no captions."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or ID"),
			mcp.Required(),
		),
	), s.handleGetTranscript)
}

// handleAnalyze implements the analyze_transcript tool
func (s *MCPServer) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transcript, err := request.RequireString("transcript")
	if err != nil {
		return mcp.NewToolResultError("transcript parameter is required and must be a string"), nil
	}

	controller := s.app.Controller()
	if err := controller.Analyze(ctx, transcript); err != nil {
		return toolError("analysis failed", controller.State(), err), nil
	}

	return mcp.NewToolResultText(controller.State().Analysis.Markdown()), nil
}

// handleGenerate implements the generate_script tool
func (s *MCPServer) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic parameter is required and must be a string"), nil
	}
	notes := request.GetString("notes", "")

	controller := s.app.Controller()
	if err := controller.Generate(ctx, topic, notes); err != nil {
		return toolError("script generation failed", controller.State(), err), nil
	}

	state := controller.State()
	if state.Script == nil {
		return mcp.NewToolResultError("no analysis available - call analyze_transcript first"), nil
	}
	return mcp.NewToolResultText(state.Script.Markdown()), nil
}

// handleGetState implements the get_workflow_state tool
func (s *MCPServer) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.app.Controller().State(), "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding state", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleReset implements the reset_workflow tool
func (s *MCPServer) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.Controller().Reset()
	return mcp.NewToolResultText("workflow reset"), nil
}

// handleGetTranscript implements the get_youtube_transcript tool
func (s *MCPServer) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}

	transcript, err := s.app.youtube.FetchTranscript(ctx, url, s.app.config.CaptionLang)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("no captions available", err), nil
	}
	return mcp.NewToolResultText(transcript), nil
}

// toolError reports an intent failure with the workflow's message when it has one
func toolError(prefix string, state State, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, ErrInvalidStep):
		return mcp.NewToolResultError(fmt.Sprintf("%s: workflow is in step %s - call reset_workflow to start over", prefix, state.Step))
	case state.Error != "":
		return mcp.NewToolResultErrorFromErr(fmt.Sprintf("%s: %s", prefix, state.Error), err)
	default:
		return mcp.NewToolResultErrorFromErr(prefix, err)
	}
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.Start(addr) }()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return httpServer.Shutdown(context.Background())
		}
	}

	// Default to stdio transport
	return server.ServeStdio(s.mcpServer)
}

// GetServer returns the underlying MCP server for advanced configuration
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.mcpServer
}
