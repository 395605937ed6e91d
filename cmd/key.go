package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rtzll/viralscripter/internal"
)

// keyCmd groups the credential subcommands
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the model API key",
	Long: `Manage the API key used for the model endpoint.

The key is looked up in this order: VIRALSCRIPTER_API_KEY, OPENAI_API_KEY or
GEMINI_API_KEY (also from a .env file), api_key in config.toml, and finally the
credential file written by "viralscripter key set".`,
}

var keySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save an API key to the credential file",
	Example: `  # Prompt for the key without echo
  viralscripter key set

  # From a pipe
  echo "$OPENAI_API_KEY" | viralscripter key set`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := readSecret("API key: ")
		if err != nil {
			return err
		}

		store := internal.NewFileCredentialStore(config.CredentialsFile, "")
		if err := store.Set(key, true); err != nil {
			return err
		}
		fmt.Printf("Saved API key %s to %s\n", internal.MaskKey(strings.TrimSpace(key)), config.CredentialsFile)
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := internal.NewFileCredentialStore(config.CredentialsFile, "")
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("Removed saved API key")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which API key is in use (masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := internal.NewFileCredentialStore(config.CredentialsFile, config.APIKey)
		key, err := store.Get()
		if errors.Is(err, internal.ErrMissingCredential) {
			fmt.Println("No API key configured")
			return nil
		}
		if err != nil {
			return err
		}

		source := "environment or config"
		if config.APIKey == "" {
			source = config.CredentialsFile
		}
		fmt.Printf("%s (from %s, provider %s)\n", internal.MaskKey(key), source, config.Provider)
		return nil
	},
}

// readSecret reads a line without echo on a terminal, or plainly from a pipe
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprint(os.Stderr, prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading key: %w", err)
	}
	return line, nil
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyClearCmd, keyShowCmd)
	rootCmd.AddCommand(keyCmd)
}
