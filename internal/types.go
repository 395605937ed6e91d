package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Step represents the current stage of the analyze -> generate workflow
type Step int

const (
	StepInput Step = iota
	StepAnalyzing
	StepReview
	StepGenerating
	StepResult
)

// String returns the wire name of the step
func (s Step) String() string {
	switch s {
	case StepInput:
		return "INPUT"
	case StepAnalyzing:
		return "ANALYZING"
	case StepReview:
		return "REVIEW"
	case StepGenerating:
		return "GENERATING"
	case StepResult:
		return "RESULT"
	default:
		return "UNKNOWN"
	}
}

// Busy reports whether a remote call is running in this step
func (s Step) Busy() bool {
	return s == StepAnalyzing || s == StepGenerating
}

// MarshalText encodes the step by name
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name
func (s *Step) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "INPUT":
		*s = StepInput
	case "ANALYZING":
		*s = StepAnalyzing
	case "REVIEW", "TOPIC_SELECTION":
		*s = StepReview
	case "GENERATING":
		*s = StepGenerating
	case "RESULT", "COMPLETE":
		*s = StepResult
	default:
		return fmt.Errorf("unknown step: %q", text)
	}
	return nil
}

// Section is one block of the analyzed video's structure
type Section struct {
	SectionName       string `json:"sectionName" jsonschema_description:"Short name of the section, e.g. Hook or Payoff"`
	Description       string `json:"description" jsonschema_description:"What the section does for the viewer"`
	EstimatedDuration string `json:"estimatedDuration" jsonschema_description:"Time range such as 0:00-0:30"`
}

// AnalysisResult is the structural breakdown of why a transcript's video worked
type AnalysisResult struct {
	HookStrategy    string    `json:"hookStrategy" jsonschema_description:"How the first 30 seconds capture the viewer"`
	Pacing          string    `json:"pacing" jsonschema_description:"Speed, editing rhythm and information density"`
	Tone            string    `json:"tone" jsonschema_description:"Emotional quality and attitude of the speaker"`
	Structure       []Section `json:"structure" jsonschema_description:"Ordered structural blocks of the video"`
	ViralFactors    []string  `json:"viralFactors" jsonschema_description:"3-5 psychological triggers or retention techniques"`
	AudienceTrigger string    `json:"audienceTrigger" jsonschema_description:"The core emotion or need the video targets"`
	SuggestedTopics []string  `json:"suggestedTopics" jsonschema_description:"3-5 new topics well suited to this structure"`
}

// UnmarshalJSON accepts both the structured and the plain-text structure variants
// and treats retentionTechniques as an alias of viralFactors
func (a *AnalysisResult) UnmarshalJSON(data []byte) error {
	type plain AnalysisResult
	var raw struct {
		plain
		Structure           json.RawMessage `json:"structure"`
		RetentionTechniques []string        `json:"retentionTechniques"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	structure, err := decodeStructure(raw.Structure)
	if err != nil {
		return err
	}

	*a = AnalysisResult(raw.plain)
	a.Structure = structure
	if len(a.ViralFactors) == 0 && len(raw.RetentionTechniques) > 0 {
		a.ViralFactors = raw.RetentionTechniques
	}
	return nil
}

// decodeStructure reads either a list of sections or a single descriptive string
func decodeStructure(data json.RawMessage) ([]Section, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, fmt.Errorf("decoding structure: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []Section{{Description: text}}, nil
	}

	var sections []Section
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decoding structure: %w", err)
	}
	return sections, nil
}

// missingFields lists the required analysis fields that are empty
func (a *AnalysisResult) missingFields() []string {
	var missing []string
	if strings.TrimSpace(a.HookStrategy) == "" {
		missing = append(missing, "hookStrategy")
	}
	if strings.TrimSpace(a.Pacing) == "" {
		missing = append(missing, "pacing")
	}
	if strings.TrimSpace(a.Tone) == "" {
		missing = append(missing, "tone")
	}
	if len(a.Structure) == 0 {
		missing = append(missing, "structure")
	}
	if len(a.SuggestedTopics) == 0 {
		missing = append(missing, "suggestedTopics")
	}
	return missing
}

// GeneratedScript is a new script modeled on an analysis
type GeneratedScript struct {
	TitleCandidates []string `json:"titleCandidates" jsonschema_description:"Three click-worthy title candidates"`
	ThumbnailIdeas  []string `json:"thumbnailIdeas" jsonschema_description:"Three thumbnail concepts"`
	ScriptContent   string   `json:"scriptContent" jsonschema_description:"Full script in markdown; visual cues in [brackets], dialogue as plain text"`
}

// UnmarshalJSON accepts the single title/thumbnailIdea variant as one-element lists
func (g *GeneratedScript) UnmarshalJSON(data []byte) error {
	type plain GeneratedScript
	var raw struct {
		plain
		Title         string `json:"title"`
		ThumbnailIdea string `json:"thumbnailIdea"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*g = GeneratedScript(raw.plain)
	if len(g.TitleCandidates) == 0 && raw.Title != "" {
		g.TitleCandidates = []string{raw.Title}
	}
	if len(g.ThumbnailIdeas) == 0 && raw.ThumbnailIdea != "" {
		g.ThumbnailIdeas = []string{raw.ThumbnailIdea}
	}
	return nil
}

// missingFields lists the required script fields that are empty
func (g *GeneratedScript) missingFields() []string {
	var missing []string
	if len(g.TitleCandidates) == 0 {
		missing = append(missing, "titleCandidates")
	}
	if strings.TrimSpace(g.ScriptContent) == "" {
		missing = append(missing, "scriptContent")
	}
	return missing
}

// Markdown renders the script with its title and thumbnail suggestions
func (g *GeneratedScript) Markdown() string {
	var sb strings.Builder
	if len(g.TitleCandidates) > 0 {
		sb.WriteString("## Title candidates\n\n")
		for i, title := range g.TitleCandidates {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, title))
		}
		sb.WriteString("\n")
	}
	if len(g.ThumbnailIdeas) > 0 {
		sb.WriteString("## Thumbnail ideas\n\n")
		for _, idea := range g.ThumbnailIdeas {
			sb.WriteString(fmt.Sprintf("- %s\n", idea))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("## Script\n\n")
	sb.WriteString(g.ScriptContent)
	return sb.String()
}

// Markdown renders the analysis as a readable report
func (a *AnalysisResult) Markdown() string {
	var sb strings.Builder
	sb.WriteString("## Hook strategy\n\n" + a.HookStrategy + "\n\n")
	sb.WriteString("## Pacing\n\n" + a.Pacing + "\n\n")
	sb.WriteString("## Tone\n\n" + a.Tone + "\n\n")

	sb.WriteString("## Structure\n\n")
	for i, section := range a.Structure {
		name := section.SectionName
		if name == "" {
			name = fmt.Sprintf("Part %d", i+1)
		}
		if section.EstimatedDuration != "" {
			sb.WriteString(fmt.Sprintf("%d. **%s** (%s): %s\n", i+1, name, section.EstimatedDuration, section.Description))
		} else {
			sb.WriteString(fmt.Sprintf("%d. **%s**: %s\n", i+1, name, section.Description))
		}
	}
	sb.WriteString("\n")

	if len(a.ViralFactors) > 0 {
		sb.WriteString("## Viral factors\n\n")
		for _, factor := range a.ViralFactors {
			sb.WriteString("- " + factor + "\n")
		}
		sb.WriteString("\n")
	}
	if a.AudienceTrigger != "" {
		sb.WriteString("## Audience trigger\n\n" + a.AudienceTrigger + "\n\n")
	}

	sb.WriteString("## Suggested topics\n\n")
	for i, topic := range a.SuggestedTopics {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, topic))
	}
	return sb.String()
}

// State is an immutable snapshot of the workflow
type State struct {
	RunID    string           `json:"runId"`
	Step     Step             `json:"step"`
	Analysis *AnalysisResult  `json:"analysis"`
	Script   *GeneratedScript `json:"script"`
	Error    string           `json:"error,omitempty"`
}
