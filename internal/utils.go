package internal

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour at terminal width
func RenderMarkdown(content string) (string, error) {
	return RenderMarkdownWidth(content, getTerminalWidth())
}

// RenderMarkdownWidth renders markdown content with glamour wrapped at width
func RenderMarkdownWidth(content string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// supportedModels lists the models known to handle json_schema responses, per provider
var supportedModels = map[string][]string{
	ProviderOpenAI: {"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini", "gpt-4.1-nano", "o4-mini"},
	ProviderGemini: {"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"},
}

// ValidateModel checks if the model is supported by the provider
func ValidateModel(provider, model string) error {
	models, ok := supportedModels[provider]
	if !ok {
		return fmt.Errorf("unsupported provider: %s (supported: %s, %s)", provider, ProviderOpenAI, ProviderGemini)
	}
	if slices.Contains(models, model) {
		return nil
	}
	return fmt.Errorf("unsupported model for %s: %s (supported: %s)", provider, model, strings.Join(models, ", "))
}

// EnsureDirs creates directories if needed
func EnsureDirs(dir ...string) error {
	for _, dir := range dir {
		if !FileExists(dir) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

// TruncateRunes cuts s to at most limit runes; limit <= 0 keeps s whole
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// TranscriptSource describes where a transcript is read from
type TranscriptSource struct {
	Path      string // file path, "-" for stdin
	Clipboard bool
}

// ReadTranscript reads the transcript from a file, stdin or the clipboard
func ReadTranscript(src TranscriptSource, stdin io.Reader) (string, error) {
	switch {
	case src.Clipboard:
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("reading clipboard: %w", err)
		}
		return text, nil
	case src.Path == "-" || src.Path == "":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return "", fmt.Errorf("reading transcript file: %w", err)
		}
		return string(data), nil
	}
}

// CopyToClipboard copies text and reports failures as errors
func CopyToClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}

// WriteOutput writes content to path, creating or truncating the file
func WriteOutput(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
