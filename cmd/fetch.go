package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/viralscripter/internal"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [YouTube URL or ID]",
	Short: "Download a YouTube video's captions as a plain-text transcript",
	Long: `Download manual or automatic captions with yt-dlp and print them as plain
text. Transcripts are cached in the data directory (see "viralscripter paths").`,
	Example: `  # Print the transcript
  viralscripter fetch https://www.youtube.com/watch?v=dQw4w9WgXcQ

  # Spanish captions saved to a file
  viralscripter fetch dQw4w9WgXcQ --lang es -o transcript.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("lang") {
			config.CaptionLang, _ = cmd.Flags().GetString("lang")
		}
		app, err := newApp()
		if err != nil {
			return err
		}

		transcript, err := app.FetchTranscript(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if output, _ := cmd.Flags().GetString("output"); output != "" {
			return internal.WriteOutput(output, transcript+"\n")
		}
		fmt.Println(transcript)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("lang", "", "Caption language (default from config, usually en)")
	fetchCmd.Flags().StringP("output", "o", "", "Write the transcript to a file")
	rootCmd.AddCommand(fetchCmd)
}
