package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Generator is the remote half of the workflow: one call per phase
type Generator interface {
	AnalyzeTranscript(ctx context.Context, transcript string) (*AnalysisResult, error)
	GenerateViralScript(ctx context.Context, analysis *AnalysisResult, topic, notes string) (*GeneratedScript, error)
}

// Compile-time interface compliance check.
var _ Generator = (*ScriptGenerator)(nil)

// ScriptGenerator builds prompts, calls the model and validates its JSON answers
type ScriptGenerator struct {
	client            CompletionClient
	prompts           *PromptManager
	model             string
	analysisTimeout   time.Duration
	generationTimeout time.Duration
}

// NewScriptGenerator creates a generator bound to one client (and therefore one credential)
func NewScriptGenerator(client CompletionClient, prompts *PromptManager, model string, analysisTimeout, generationTimeout time.Duration) *ScriptGenerator {
	return &ScriptGenerator{
		client:            client,
		prompts:           prompts,
		model:             model,
		analysisTimeout:   analysisTimeout,
		generationTimeout: generationTimeout,
	}
}

// AnalyzeTranscript asks the model why the transcript's video worked
func (g *ScriptGenerator) AnalyzeTranscript(ctx context.Context, transcript string) (*AnalysisResult, error) {
	const op = "analyze transcript"

	if strings.TrimSpace(transcript) == "" {
		return nil, invalidInput("transcript is empty")
	}

	system, err := g.prompts.SystemInstruction()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	prompt, err := g.prompts.AnalysisPrompt(transcript)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	text, err := g.complete(ctx, g.analysisTimeout, CompletionRequest{
		Model:             g.model,
		SystemInstruction: system,
		Prompt:            prompt,
		SchemaName:        "transcript_analysis",
		Schema:            AnalysisSchema(),
	})
	if err != nil {
		return nil, &RemoteCallError{Op: op, Err: err}
	}

	return ParseAnalysis(text)
}

// GenerateViralScript writes a new script on topic using the analyzed structure
func (g *ScriptGenerator) GenerateViralScript(ctx context.Context, analysis *AnalysisResult, topic, notes string) (*GeneratedScript, error) {
	const op = "generate script"

	if analysis == nil {
		return nil, invalidInput("analysis is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, invalidInput("topic is empty")
	}

	system, err := g.prompts.SystemInstruction()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	prompt, err := g.prompts.ScriptPrompt(analysis, topic, notes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	text, err := g.complete(ctx, g.generationTimeout, CompletionRequest{
		Model:             g.model,
		SystemInstruction: system,
		Prompt:            prompt,
		SchemaName:        "viral_script",
		Schema:            ScriptSchema(),
	})
	if err != nil {
		return nil, &RemoteCallError{Op: op, Err: err}
	}

	return ParseScript(text)
}

// complete runs one completion bounded by timeout
func (g *ScriptGenerator) complete(ctx context.Context, timeout time.Duration, req CompletionRequest) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err := g.client.CreateStructuredCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return text, nil
}

// ParseAnalysis decodes and validates an analysis response
func ParseAnalysis(text string) (*AnalysisResult, error) {
	const op = "analyze transcript"

	body := stripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	if missing := result.missingFields(); len(missing) > 0 {
		return nil, &ParseError{Op: op, Missing: missing}
	}
	return &result, nil
}

// ParseScript decodes and validates a script response
func ParseScript(text string) (*GeneratedScript, error) {
	const op = "generate script"

	body := stripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	var script GeneratedScript
	if err := json.Unmarshal([]byte(body), &script); err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	if missing := script.missingFields(); len(missing) > 0 {
		return nil, &ParseError{Op: op, Missing: missing}
	}
	return &script, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add around JSON output
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		text = text[newline+1:]
	} else {
		text = ""
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
