package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rtzll/viralscripter/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing the script workflow",
	Long: `Run a Model Context Protocol (MCP) server that exposes the analyze -> generate
workflow as tools, so an AI assistant can drive it.

Tools:
- analyze_transcript: analyze a transcript and return suggested topics
- generate_script: write a script on a topic from the last analysis
- get_workflow_state: current step, analysis, script and error as JSON
- reset_workflow: start over
- get_youtube_transcript: fetch captions of a YouTube video

The API key is taken from the environment, config.toml or "viralscripter key set".

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport (e.g. for Claude Desktop)
  viralscripter mcp

  # Run MCP server with HTTP transport on port 8080
  viralscripter mcp --transport=http --port=8080

  # Set up Claude Desktop integration
  viralscripter mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; status output and spinners stay off
		config.Quiet = true
		return internal.ValidateModelRequirements(cmd, config)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		app, err := newApp()
		if err != nil {
			return err
		}

		mcpServer := internal.NewMCPServer(app, version)
		logger.Info("starting MCP server (transport %s)", transport)

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Register viralscripter as an MCP server in Claude Desktop",
	Long: `Add (or update) the viralscripter entry in Claude Desktop's
claude_desktop_config.json. Other configured servers are kept. The entry runs
this binary with "mcp" and passes the current XDG directories, so the server
sees the same config.toml and saved API key as the CLI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("getting executable path: %w", err)
		}
		if execPath, err = filepath.EvalSymlinks(execPath); err != nil {
			return fmt.Errorf("resolving executable path: %w", err)
		}

		home, _ := os.UserHomeDir()
		configPath, err := desktopConfigPath(runtime.GOOS, home, os.Getenv("APPDATA"))
		if err != nil {
			return err
		}
		if err := registerDesktopServer(configPath, execPath); err != nil {
			return err
		}

		fmt.Printf("Registered %s in %s\n", internal.AppName, configPath)
		fmt.Println("Restart Claude Desktop to load the MCP server")
		return nil
	},
}

// desktopServers is the part of claude_desktop_config.json we edit; other keys are preserved
type desktopServers struct {
	MCPServers map[string]desktopServer `json:"mcpServers"`
}

type desktopServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// registerDesktopServer upserts the viralscripter entry into an existing Claude Desktop config
func registerDesktopServer(configPath, execPath string) error {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config for Claude Desktop not found at %s (start Claude Desktop once first)", configPath)
	}
	if err != nil {
		return fmt.Errorf("reading Claude Desktop config: %w", err)
	}

	var document map[string]json.RawMessage
	if err := json.Unmarshal(data, &document); err != nil {
		return fmt.Errorf("parsing Claude Desktop config: %w", err)
	}
	if document == nil {
		document = map[string]json.RawMessage{}
	}

	var servers desktopServers
	if raw, ok := document["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers.MCPServers); err != nil {
			return fmt.Errorf("parsing mcpServers: %w", err)
		}
	}
	if servers.MCPServers == nil {
		servers.MCPServers = map[string]desktopServer{}
	}
	servers.MCPServers[internal.AppName] = desktopServer{
		Command: execPath,
		Args:    []string{"mcp"},
		Env: map[string]string{
			"XDG_CONFIG_HOME": xdg.ConfigHome,
			"XDG_DATA_HOME":   xdg.DataHome,
			"XDG_CACHE_HOME":  xdg.CacheHome,
		},
	}

	encoded, err := json.Marshal(servers.MCPServers)
	if err != nil {
		return fmt.Errorf("encoding mcpServers: %w", err)
	}
	document["mcpServers"] = encoded

	out, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding Claude Desktop config: %w", err)
	}
	if err := os.WriteFile(configPath, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("writing Claude Desktop config: %w", err)
	}
	return nil
}

// desktopConfigPath locates claude_desktop_config.json for goos
func desktopConfigPath(goos, home, appData string) (string, error) {
	const name = "claude_desktop_config.json"
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", name), nil
	case "windows":
		if appData == "" {
			return "", errors.New("APPDATA is not set")
		}
		return filepath.Join(appData, "Claude", name), nil
	case "linux":
		return filepath.Join(home, ".config", "Claude", name), nil
	default:
		return "", fmt.Errorf("unsupported platform for Claude Desktop: %s", goos)
	}
}

func init() {
	internal.AddModelFlags(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	mcpCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(mcpCmd)
}
