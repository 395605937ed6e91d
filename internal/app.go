package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// GeneratorFactory builds a generator bound to one API key
type GeneratorFactory func(apiKey string) Generator

// App holds the application state and dependencies
type App struct {
	config       *Config
	credentials  CredentialStore
	controller   *Controller
	prompts      *PromptManager
	youtube      *YouTube
	ui           UIManager
	logger       *Logger
	newGenerator GeneratorFactory
}

// NewApp initializes the application. The controller starts without a generator
// until Connect finds a credential.
func NewApp(config *Config, options ...AppOption) *App {
	app := &App{
		config:      config,
		credentials: NewFileCredentialStore(config.CredentialsFile, config.APIKey),
		prompts:     NewPromptManager(config.PromptsDir, config.Language, config.MaxTranscriptChars),
		ui:          NewUIManager(config.Verbose, config.Quiet),
	}
	app.newGenerator = app.openAIGenerator

	// Apply any custom options
	for _, option := range options {
		option(app)
	}

	app.youtube = NewYouTube(config.CacheDir, config.TranscriptsDir, app.logger)
	app.controller = NewController(nil, config.MinTranscriptChars, app.logger)
	return app
}

// AppOption customizes App creation
type AppOption func(*App)

// WithGeneratorFactory replaces the OpenAI-backed generator (used in tests)
func WithGeneratorFactory(factory GeneratorFactory) AppOption {
	return func(a *App) {
		a.newGenerator = factory
	}
}

// WithCredentialStore sets a custom credential store
func WithCredentialStore(store CredentialStore) AppOption {
	return func(a *App) {
		a.credentials = store
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// WithUI sets a custom UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// openAIGenerator is the default factory
func (app *App) openAIGenerator(apiKey string) Generator {
	client := NewOpenAIClient(apiKey, app.config.BaseURL, app.config.MaxRetries)
	return NewScriptGenerator(client, app.prompts, app.config.Model, app.config.AnalysisTimeout, app.config.GenerationTimeout)
}

// Controller returns the workflow controller shared by every front end
func (app *App) Controller() *Controller {
	return app.controller
}

// Config returns the loaded configuration
func (app *App) Config() *Config {
	return app.config
}

// Logger returns the diagnostic logger (may be nil)
func (app *App) Logger() *Logger {
	return app.logger
}

// Connect binds a generator to the stored credential, if any.
// A missing credential is not an error: the workflow reports it on the first intent.
func (app *App) Connect() error {
	key, err := app.credentials.Get()
	if errors.Is(err, ErrMissingCredential) {
		app.logger.Debug("no API key configured yet")
		return nil
	}
	if err != nil {
		return err
	}
	return app.controller.SetGenerator(app.newGenerator(key))
}

// SetAPIKey stores a key and rebinds the generator
func (app *App) SetAPIKey(key string, persist bool) error {
	if err := app.credentials.Set(key, persist); err != nil {
		return err
	}
	stored, err := app.credentials.Get()
	if err != nil {
		return err
	}
	if err := app.controller.SetGenerator(app.newGenerator(stored)); err != nil {
		return err
	}
	app.logger.Info("API key updated (persisted: %t)", persist)
	return nil
}

// ClearAPIKey forgets the key; later intents fail with ErrMissingCredential
func (app *App) ClearAPIKey() error {
	if err := app.controller.SetGenerator(nil); err != nil {
		return err
	}
	if err := app.credentials.Clear(); err != nil {
		return err
	}
	app.logger.Info("API key cleared")
	return nil
}

// APIKey returns the current key
func (app *App) APIKey() (string, error) {
	return app.credentials.Get()
}

// FetchTranscript downloads (or loads cached) YouTube captions
func (app *App) FetchTranscript(ctx context.Context, arg string) (string, error) {
	spinner := app.ui.NewSpinner("Fetching YouTube captions...")
	defer spinner.Finish()

	transcript, err := app.youtube.FetchTranscript(ctx, arg, app.config.CaptionLang)
	if err != nil {
		return "", fmt.Errorf("fetching transcript: %w", err)
	}
	return transcript, nil
}

// AnalyzeWithStatus runs the analysis intent with a spinner
func (app *App) AnalyzeWithStatus(ctx context.Context, transcript string) (*AnalysisResult, error) {
	spinner := app.ui.NewSpinner("Analyzing transcript...")
	err := app.controller.Analyze(ctx, transcript)
	spinner.Finish()
	if err != nil {
		return nil, app.describeFailure(err)
	}
	return app.controller.State().Analysis, nil
}

// GenerateWithStatus runs the generation intent with a spinner
func (app *App) GenerateWithStatus(ctx context.Context, topic, notes string) (*GeneratedScript, error) {
	spinner := app.ui.NewSpinner("Writing script...")
	err := app.controller.Generate(ctx, topic, notes)
	spinner.Finish()
	if err != nil {
		return nil, app.describeFailure(err)
	}

	state := app.controller.State()
	if state.Script == nil {
		return nil, fmt.Errorf("no analysis available: %w", ErrInvalidStep)
	}
	return state.Script, nil
}

// LoadAnalysis puts a previously saved analysis into the workflow, moving it to REVIEW
func (app *App) LoadAnalysis(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading analysis file: %w", err)
	}
	var analysis AnalysisResult
	if err := json.Unmarshal(data, &analysis); err != nil {
		return fmt.Errorf("parsing analysis file: %w", err)
	}
	if missing := analysis.missingFields(); len(missing) > 0 {
		return &ParseError{Op: "load analysis", Missing: missing}
	}
	return app.controller.Restore(&analysis)
}

// describeFailure pairs the user-facing state message with the underlying cause
func (app *App) describeFailure(err error) error {
	if msg := app.controller.State().Error; msg != "" && IsCallError(err) {
		return fmt.Errorf("%s (%w)", msg, err)
	}
	return err
}

// PrintMarkdown renders markdown for the terminal, raw when rendering fails
func (app *App) PrintMarkdown(content string) {
	rendered, err := RenderMarkdown(content)
	if err != nil {
		app.logger.Error("rendering markdown: %v", err)
		fmt.Println(content)
		return
	}
	fmt.Print(rendered)
}
