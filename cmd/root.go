package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rtzll/viralscripter/internal"
)

var (
	config *internal.Config
	logger *internal.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "viralscripter",
	Short: "Turn a successful video's transcript into a new viral script",
	Long: `viralscripter analyzes why a video worked and writes a new one like it.

Paste the transcript of a successful video: an LLM breaks it down into
hook strategy, pacing, tone, structure and the psychological triggers it
relies on. Then pick one of the suggested topics (or your own) and get a
new script with title and thumbnail ideas, built on the same structure.

Without a subcommand an interactive terminal UI guides you through both steps.`,
	Example: `  # Interactive mode
  viralscripter

  # One-shot: analyze a transcript file, then write a script
  viralscripter analyze -f transcript.txt -o analysis.json
  viralscripter script --analysis analysis.json "Why cold showers are overrated"

  # Both steps in one go, from YouTube captions
  viralscripter run --youtube https://youtu.be/dQw4w9WgXcQ --topic "Home espresso on a budget"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleVerboseFlag(cmd, config); err != nil {
			return err
		}
		logger, closeLog = internal.NewAppLogger(config)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return errors.New("interactive mode requires a terminal (TTY); use `viralscripter run` instead")
		}
		if err := internal.ValidateModelRequirements(cmd, config); err != nil {
			return err
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		return internal.RunTUI(cmd.Context(), app)
	},
}

var closeLog = func() error { return nil }

// newApp builds the application and binds the stored credential
func newApp(options ...internal.AppOption) (*internal.App, error) {
	options = append([]internal.AppOption{internal.WithLogger(logger)}, options...)
	app := internal.NewApp(config, options...)
	if err := app.Connect(); err != nil {
		return nil, fmt.Errorf("loading API key: %w", err)
	}
	return app, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Cancelled on interrupt so in-flight model calls stop
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize configuration with Viper
	config = internal.InitConfig()

	// Ensure XDG directories exist
	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		os.Exit(1)
	}

	// Ensure default config exists in XDG config directory
	if err := internal.EnsureDefaultConfig(config.ConfigDir, config.Quiet); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	// Ensure editable prompt templates exist
	if err := internal.EnsureDefaultPrompts(config.PromptsDir, config.Quiet); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompts: %v\n", err)
	}

	rootCmd.SetContext(ctx)

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	internal.AddModelFlags(rootCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress status output")
}
