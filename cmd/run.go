package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/viralscripter/internal"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze a transcript and write a script in one go",
	Long: `Run both workflow steps without interaction: analyze the transcript,
then write a script on --topic (or the first suggested topic).`,
	Example: `  # YouTube captions to a finished script
  viralscripter run --youtube https://youtu.be/dQw4w9WgXcQ --topic "Home espresso on a budget"

  # Keep the analysis too
  viralscripter run -f transcript.txt --save-analysis analysis.json -o script.md`,
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
		if path, _ := cmd.Flags().GetString("save-analysis"); path != "" {
			if err := saveJSON(path, analysis); err != nil {
				return err
			}
		}

		topic, _ := cmd.Flags().GetString("topic")
		if topic == "" {
			topic = analysis.SuggestedTopics[0]
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
	internal.AddModelFlags(runCmd)
	internal.AddTranscriptFlags(runCmd)
	internal.AddOutputFlags(runCmd)
	runCmd.Flags().StringP("topic", "t", "", "Topic of the new script (default: first suggested topic)")
	runCmd.Flags().String("notes", "", "Extra instruction for the script")
	runCmd.Flags().String("save-analysis", "", "Also write the analysis JSON to this file")
	rootCmd.AddCommand(runCmd)
}
