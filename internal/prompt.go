package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Prompt template file names, looked up in <config dir>/prompts and then in the embedded defaults
const (
	systemPromptFile   = "system.tmpl"
	analysisPromptFile = "analysis.tmpl"
	scriptPromptFile   = "script.tmpl"
)

// Fixed answer sizes requested from the model
const (
	suggestedTopicCount = 5
	titleCandidateCount = 3
	thumbnailIdeaCount  = 3
)

// SystemPromptData for the system instruction template
type SystemPromptData struct {
	Language string
}

// AnalysisPromptData for the analysis template
type AnalysisPromptData struct {
	Language   string
	Transcript string
	TopicCount int
}

// ScriptPromptData for the script generation template
type ScriptPromptData struct {
	Language       string
	Analysis       string
	Topic          string
	Notes          string
	TitleCount     int
	ThumbnailCount int
}

// PromptManager handles loading and executing prompt templates
type PromptManager struct {
	promptsDir         string
	language           string
	maxTranscriptChars int
}

// NewPromptManager creates a new prompt manager.
// maxTranscriptChars <= 0 disables truncation.
func NewPromptManager(promptsDir, language string, maxTranscriptChars int) *PromptManager {
	if language == "" {
		language = "English"
	}
	return &PromptManager{
		promptsDir:         promptsDir,
		language:           language,
		maxTranscriptChars: maxTranscriptChars,
	}
}

// Language returns the target language
func (pm *PromptManager) Language() string {
	return pm.language
}

// SystemInstruction builds the role instruction sent with every request
func (pm *PromptManager) SystemInstruction() (string, error) {
	return pm.execute(systemPromptFile, SystemPromptData{Language: pm.language})
}

// AnalysisPrompt builds the analysis task prompt around a bounded transcript
func (pm *PromptManager) AnalysisPrompt(transcript string) (string, error) {
	return pm.execute(analysisPromptFile, AnalysisPromptData{
		Language:   pm.language,
		Transcript: TruncateRunes(strings.TrimSpace(transcript), pm.maxTranscriptChars),
		TopicCount: suggestedTopicCount,
	})
}

// ScriptPrompt builds the generation prompt from a previous analysis and a new topic
func (pm *PromptManager) ScriptPrompt(analysis *AnalysisResult, topic, notes string) (string, error) {
	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing analysis: %w", err)
	}

	return pm.execute(scriptPromptFile, ScriptPromptData{
		Language:       pm.language,
		Analysis:       string(analysisJSON),
		Topic:          strings.TrimSpace(topic),
		Notes:          strings.TrimSpace(notes),
		TitleCount:     titleCandidateCount,
		ThumbnailCount: thumbnailIdeaCount,
	})
}

// loadTemplate prefers a user-edited file and falls back to the embedded default
func (pm *PromptManager) loadTemplate(name string) (string, error) {
	if pm.promptsDir != "" {
		path := filepath.Join(pm.promptsDir, name)
		if FileExists(path) {
			content, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("reading prompt template: %w", err)
			}
			return string(content), nil
		}
	}

	content, err := defaultFS.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("reading embedded prompt template %s: %w", name, err)
	}
	return string(content), nil
}

// execute parses and runs the named template
func (pm *PromptManager) execute(name string, data any) (string, error) {
	content, err := pm.loadTemplate(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}
