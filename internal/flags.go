package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddModelFlags adds flags that select the model endpoint and answer language
func AddModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Model to use for analysis and generation")
	cmd.Flags().String("provider", "", "Model provider (openai or gemini)")
	cmd.Flags().StringP("language", "l", "", "Language of the analysis and the script")
}

// AddTranscriptFlags adds flags that choose the transcript source
func AddTranscriptFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Read the transcript from a file (- for stdin)")
	cmd.Flags().String("youtube", "", "Fetch the transcript from a YouTube URL or video ID")
	cmd.Flags().Bool("clipboard", false, "Read the transcript from the clipboard")
}

// AddOutputFlags adds flags for where results go
func AddOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Write the result to a file")
	cmd.Flags().Bool("copy", false, "Copy the result to the clipboard")
	cmd.Flags().Bool("json", false, "Print JSON instead of rendered markdown")
}

// HandleVerboseFlag processes the --verbose and --quiet flags to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if cmd.Flags().Changed("verbose") {
		config.Verbose = verbose
	}
	if cmd.Flags().Changed("quiet") {
		config.Quiet = quiet
	}
	return nil
}

// ValidateModelRequirements applies the model flags and validates the resulting model
func ValidateModelRequirements(cmd *cobra.Command, config *Config) error {
	if flag := cmd.Flags().Lookup("provider"); flag != nil && flag.Changed {
		provider := flag.Value.String()
		baseURL, model := providerDefaults(provider)
		config.Provider = provider
		if !config.BaseURLOverride {
			config.BaseURL = baseURL
			config.Model = model
		}
	}
	if flag := cmd.Flags().Lookup("language"); flag != nil && flag.Changed {
		config.Language = flag.Value.String()
	}

	if modelFlag, _ := cmd.Flags().GetString("model"); modelFlag != "" {
		config.Model = modelFlag
	}

	// Custom endpoints serve models we cannot know about
	if config.BaseURLOverride {
		return nil
	}
	if err := ValidateModel(config.Provider, config.Model); err != nil {
		return fmt.Errorf("invalid model: %w", err)
	}
	return nil
}

// TranscriptSourceFromFlags reads the transcript source flags
func TranscriptSourceFromFlags(cmd *cobra.Command) (TranscriptSource, string) {
	path, _ := cmd.Flags().GetString("file")
	youtube, _ := cmd.Flags().GetString("youtube")
	useClipboard, _ := cmd.Flags().GetBool("clipboard")
	return TranscriptSource{Path: path, Clipboard: useClipboard}, youtube
}
