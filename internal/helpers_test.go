package internal

import (
	"context"
	"strings"
	"sync"
)

// fakeGenerator is a scripted Generator. When block is set, calls wait on it
// (calls ignore context cancellation unless honorCancel is set).
type fakeGenerator struct {
	mu            sync.Mutex
	analyzeCalls  int
	generateCalls int
	lastTopic     string
	lastNotes     string

	analysis    *AnalysisResult
	analyzeErr  error
	script      *GeneratedScript
	generateErr error

	started     chan struct{}
	block       chan struct{}
	honorCancel bool
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		analysis: sampleAnalysis(),
		script:   sampleScript(),
		started:  make(chan struct{}, 16),
	}
}

func (f *fakeGenerator) AnalyzeTranscript(ctx context.Context, transcript string) (*AnalysisResult, error) {
	f.mu.Lock()
	f.analyzeCalls++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, &RemoteCallError{Op: "analyze transcript", Err: err}
	}
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.analysis, nil
}

func (f *fakeGenerator) GenerateViralScript(ctx context.Context, analysis *AnalysisResult, topic, notes string) (*GeneratedScript, error) {
	f.mu.Lock()
	f.generateCalls++
	f.lastTopic = topic
	f.lastNotes = notes
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, &RemoteCallError{Op: "generate script", Err: err}
	}
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.script, nil
}

func (f *fakeGenerator) wait(ctx context.Context) error {
	f.started <- struct{}{}
	if f.block == nil {
		return nil
	}
	if f.honorCancel {
		select {
		case <-f.block:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-f.block
	return nil
}

func (f *fakeGenerator) calls() (analyze, generate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls, f.generateCalls
}

// fakeCompletionClient returns canned text and records requests
type fakeCompletionClient struct {
	mu       sync.Mutex
	response string
	err      error
	requests []CompletionRequest
}

func (f *fakeCompletionClient) CreateStructuredCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeCompletionClient) lastRequest() CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// stateRecorder collects every published snapshot
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := make([]Step, 0, len(r.states))
	for _, s := range r.states {
		steps = append(steps, s.Step)
	}
	return steps
}

func sampleAnalysis() *AnalysisResult {
	return &AnalysisResult{
		HookStrategy: "Opens with a bold claim and a question",
		Pacing:       "Fast cuts every 3 seconds",
		Tone:         "Energetic and confident",
		Structure: []Section{
			{SectionName: "Hook", Description: "Bold claim", EstimatedDuration: "0:00-0:15"},
			{SectionName: "Payoff", Description: "The reveal", EstimatedDuration: "0:15-1:00"},
		},
		ViralFactors:    []string{"curiosity gap", "pattern interrupt", "social proof"},
		AudienceTrigger: "Fear of missing out",
		SuggestedTopics: []string{"Budget travel hacks", "Morning routines", "Home espresso"},
	}
}

func sampleScript() *GeneratedScript {
	return &GeneratedScript{
		TitleCandidates: []string{"I tried it for 30 days", "Nobody tells you this", "Stop doing this"},
		ThumbnailIdeas:  []string{"Shocked face", "Before/after split", "Big red arrow"},
		ScriptContent:   "[Close-up] You have been doing this wrong.\n\nHere is why.",
	}
}

// validTranscript is long enough for the default minimum
var validTranscript = strings.Repeat("This video changed how I think about mornings. ", 5)

func newTestController(gen Generator) *Controller {
	return NewController(gen, 50, nil)
}
