package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/viralscripter/internal"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze why a video's transcript works",
	Long: `Analyze a transcript for hook strategy, pacing, tone, structure, viral
factors and audience trigger, and suggest new topics that fit the structure.

The transcript is read from --file, --youtube, --clipboard or stdin.
Save the result as JSON (-o analysis.json) to write scripts from it later.`,
	Example: `  # Analyze a transcript file
  viralscripter analyze -f transcript.txt

  # Analyze captions of a YouTube video and keep the analysis
  viralscripter analyze --youtube dQw4w9WgXcQ -o analysis.json

  # From stdin, in German
  pbpaste | viralscripter analyze --language German`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateModelRequirements(cmd, config); err != nil {
			return err
		}
		app, err := newApp()
		if err != nil {
			return err
		}

		transcript, err := readTranscript(cmd, app)
		if err != nil {
			return err
		}

		analysis, err := app.AnalyzeWithStatus(cmd.Context(), transcript)
		if err != nil {
			return err
		}
		return emitResult(cmd, app, analysis.Markdown(), analysis)
	},
}

func init() {
	internal.AddModelFlags(analyzeCmd)
	internal.AddTranscriptFlags(analyzeCmd)
	internal.AddOutputFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}
