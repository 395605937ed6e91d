package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/viralscripter/internal"
)

// scriptCmd represents the script command
var scriptCmd = &cobra.Command{
	Use:   "script [topic]",
	Short: "Write a new script from a saved analysis",
	Long: `Write a new video script on a topic, modeled on an analysis saved with
"viralscripter analyze -o analysis.json". Without a topic argument the first
suggested topic of the analysis is used.`,
	Example: `  # Use the first suggested topic
  viralscripter script --analysis analysis.json

  # Your own topic, with an extra instruction, copied to the clipboard
  viralscripter script --analysis analysis.json "Budget travel in Japan" --notes "keep it under 60 seconds" --copy`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateModelRequirements(cmd, config); err != nil {
			return err
		}
		app, err := newApp()
		if err != nil {
			return err
		}

		analysisPath, _ := cmd.Flags().GetString("analysis")
		if err := app.LoadAnalysis(analysisPath); err != nil {
			return err
		}

		topic := strings.Join(args, " ")
		if topic == "" {
			topic = app.Controller().State().Analysis.SuggestedTopics[0]
			app.Logger().Info("using suggested topic %q", topic)
		}
		notes, _ := cmd.Flags().GetString("notes")

		script, err := app.GenerateWithStatus(cmd.Context(), topic, notes)
		if err != nil {
			return err
		}
		return emitResult(cmd, app, script.Markdown(), script)
	},
}

func init() {
	internal.AddModelFlags(scriptCmd)
	internal.AddOutputFlags(scriptCmd)
	scriptCmd.Flags().String("analysis", "", "Analysis JSON written by `analyze -o`")
	scriptCmd.Flags().String("notes", "", "Extra instruction for the script")
	_ = scriptCmd.MarkFlagRequired("analysis")
	rootCmd.AddCommand(scriptCmd)
}
