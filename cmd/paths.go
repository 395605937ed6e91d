package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  viralscripter paths`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", config.ConfigDir)
		fmt.Printf("Prompt templates: %s\n", config.PromptsDir)
		fmt.Printf("Credential file: %s\n", config.CredentialsFile)
		fmt.Printf("Data directory: %s\n", config.DataDir)
		fmt.Printf("Transcripts directory: %s\n", config.TranscriptsDir)
		fmt.Printf("Cache directory: %s\n", config.CacheDir)
		fmt.Printf("Log file: %s\n", config.LogFile)
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
