package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDesktopServerKeepsOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"theme": "dark",
		"mcpServers": {"other": {"command": "/usr/bin/other", "args": [], "env": {}}}
	}`), 0644))

	require.NoError(t, registerDesktopServer(path, "/opt/bin/viralscripter"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var document struct {
		Theme      string                   `json:"theme"`
		MCPServers map[string]desktopServer `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(data, &document))

	assert.Equal(t, "dark", document.Theme)
	assert.Equal(t, "/usr/bin/other", document.MCPServers["other"].Command)
	entry := document.MCPServers["viralscripter"]
	assert.Equal(t, "/opt/bin/viralscripter", entry.Command)
	assert.Equal(t, []string{"mcp"}, entry.Args)
	assert.Contains(t, entry.Env, "XDG_CONFIG_HOME")
}

func TestRegisterDesktopServerRequiresExistingConfig(t *testing.T) {
	err := registerDesktopServer(filepath.Join(t.TempDir(), "missing.json"), "/bin/x")
	assert.ErrorContains(t, err, "config for Claude Desktop not found")
}

func TestDesktopConfigPath(t *testing.T) {
	path, err := desktopConfigPath("linux", "/home/ana", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/ana", ".config", "Claude", "claude_desktop_config.json"), path)

	path, err = desktopConfigPath("darwin", "/Users/ana", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/Users/ana", "Library", "Application Support", "Claude", "claude_desktop_config.json"), path)

	_, err = desktopConfigPath("windows", "", "")
	assert.Error(t, err)

	_, err = desktopConfigPath("plan9", "/", "")
	assert.Error(t, err)
}
