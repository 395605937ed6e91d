package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/viralscripter/internal"
)

// readTranscript resolves the transcript from --youtube, --clipboard, --file or stdin
func readTranscript(cmd *cobra.Command, app *internal.App) (string, error) {
	source, youtube := internal.TranscriptSourceFromFlags(cmd)
	if youtube != "" {
		return app.FetchTranscript(cmd.Context(), youtube)
	}
	return internal.ReadTranscript(source, os.Stdin)
}

// emitResult writes the result as requested by the output flags:
// JSON or rendered markdown on stdout, optionally a file and the clipboard.
func emitResult(cmd *cobra.Command, app *internal.App, markdown string, value any) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	output, _ := cmd.Flags().GetString("output")
	copyResult, _ := cmd.Flags().GetBool("copy")

	if output != "" {
		if asJSON || isJSONPath(output) {
			if err := saveJSON(output, value); err != nil {
				return err
			}
		} else {
			if err := internal.WriteOutput(output, markdown); err != nil {
				return err
			}
			if !config.Quiet {
				fmt.Fprintf(os.Stderr, "Saved to %s\n", output)
			}
		}
	}

	if copyResult {
		if err := internal.CopyToClipboard(markdown); err != nil {
			return err
		}
		if !config.Quiet {
			fmt.Fprintln(os.Stderr, "Copied to clipboard")
		}
	}

	if asJSON {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	if output == "" || !config.Quiet {
		app.PrintMarkdown(markdown)
	}
	return nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// saveJSON writes value as indented JSON
func saveJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := internal.WriteOutput(path, string(data)+"\n"); err != nil {
		return err
	}
	if !config.Quiet {
		fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
	}
	return nil
}
