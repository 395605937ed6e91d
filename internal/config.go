package internal

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName is used for XDG directories, env prefix and server names
const AppName = "viralscripter"

// Supported providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Config holds application settings
type Config struct {
	// User configurable settings
	Provider           string
	BaseURL            string
	BaseURLOverride    bool
	Model              string
	Language           string
	AnalysisTimeout    time.Duration
	GenerationTimeout  time.Duration
	MinTranscriptChars int
	MaxTranscriptChars int
	MaxRetries         int
	CaptionLang        string
	ServeAddr          string
	Verbose            bool
	Quiet              bool
	LogFile            string
	APIKey             string

	// Fixed XDG paths (not configurable)
	ConfigDir       string
	DataDir         string
	CacheDir        string
	PromptsDir      string
	TranscriptsDir  string
	CredentialsFile string
}

//go:embed config.toml prompts/*.tmpl
var defaultFS embed.FS

// providerDefaults returns the endpoint and model used when none are configured
func providerDefaults(provider string) (baseURL, model string) {
	switch provider {
	case ProviderGemini:
		return GeminiBaseURL, "gemini-2.5-flash"
	default:
		return "", "gpt-4o-mini"
	}
}

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(dir, embedPath, description string, quiet bool) error {
	filePath := filepath.Join(dir, filepath.Base(embedPath))

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedPath)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "Created default %s at %s\n", description, filePath)
	}
	return nil
}

// EnsureDefaultConfig checks if a config file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultConfig(configDir string, quiet bool) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration", quiet)
}

// EnsureDefaultPrompts writes the editable prompt templates that are not present yet
func EnsureDefaultPrompts(promptsDir string, quiet bool) error {
	names, err := fs.Glob(defaultFS, "prompts/*.tmpl")
	if err != nil {
		return fmt.Errorf("listing embedded prompts: %w", err)
	}
	for _, name := range names {
		if err := ensureDefaultFile(promptsDir, name, "prompt template", quiet); err != nil {
			return err
		}
	}
	return nil
}

// InitConfig initializes Viper and loads configuration
func InitConfig() *Config {
	// A .env in the working directory is optional
	_ = godotenv.Load()

	// XDG standard directories
	configDir := filepath.Join(xdg.ConfigHome, AppName)
	dataDir := filepath.Join(xdg.DataHome, AppName)
	cacheDir := filepath.Join(xdg.CacheHome, AppName)

	v := viper.New()

	// Set default values for configurable settings
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("base_url", "")
	v.SetDefault("model", "")
	v.SetDefault("language", "English")
	v.SetDefault("analysis_timeout", 2*time.Minute)
	v.SetDefault("generation_timeout", 3*time.Minute)
	v.SetDefault("min_transcript_chars", 50)
	v.SetDefault("max_transcript_chars", 20000)
	v.SetDefault("max_retries", 0)
	v.SetDefault("caption_lang", "en")
	v.SetDefault("serve_addr", "127.0.0.1:8080")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("log_file", filepath.Join(cacheDir, AppName+".log"))

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// The key can come from the app prefix or the provider's usual variable
	_ = v.BindEnv("api_key", "VIRALSCRIPTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	provider := strings.ToLower(strings.TrimSpace(v.GetString("provider")))
	defaultBaseURL, defaultModel := providerDefaults(provider)

	baseURL := v.GetString("base_url")
	baseURLOverride := baseURL != ""
	if !baseURLOverride {
		baseURL = defaultBaseURL
	}
	model := v.GetString("model")
	if model == "" {
		model = defaultModel
	}

	config := &Config{
		Provider:           provider,
		BaseURL:            baseURL,
		BaseURLOverride:    baseURLOverride,
		Model:              model,
		Language:           v.GetString("language"),
		AnalysisTimeout:    v.GetDuration("analysis_timeout"),
		GenerationTimeout:  v.GetDuration("generation_timeout"),
		MinTranscriptChars: v.GetInt("min_transcript_chars"),
		MaxTranscriptChars: v.GetInt("max_transcript_chars"),
		MaxRetries:         v.GetInt("max_retries"),
		CaptionLang:        v.GetString("caption_lang"),
		ServeAddr:          v.GetString("serve_addr"),
		Verbose:            v.GetBool("verbose"),
		Quiet:              v.GetBool("quiet"),
		LogFile:            v.GetString("log_file"),
		APIKey:             v.GetString("api_key"),

		ConfigDir:       configDir,
		DataDir:         dataDir,
		CacheDir:        cacheDir,
		PromptsDir:      filepath.Join(configDir, "prompts"),
		TranscriptsDir:  filepath.Join(dataDir, "transcripts"),
		CredentialsFile: filepath.Join(configDir, "credentials"),
	}

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}
