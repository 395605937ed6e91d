package internal

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

// User-facing messages set on the workflow state
const (
	MsgMissingCredential = "Set an API key first."
	MsgAnalysisFailed    = "Transcript analysis failed. Check your API key or try again in a moment."
	MsgGenerationFailed  = "Script generation failed. Please try again in a moment."
)

// Controller owns the workflow state and sequences the two remote calls.
// At most one call is in flight at any time, whatever the number of callers.
type Controller struct {
	mu                 sync.Mutex
	generator          Generator
	minTranscriptChars int
	logger             *Logger

	state    State
	inflight bool
	cancel   context.CancelFunc
	epoch    uint64

	// Snapshots wait in pending until the single delivering committer hands them out
	pending    []State
	delivering bool
	listeners  map[int]func(State)
	nextID     int
}

// NewController creates a controller in the INPUT step.
// generator may be nil until a credential is configured.
func NewController(generator Generator, minTranscriptChars int, logger *Logger) *Controller {
	return &Controller{
		generator:          generator,
		minTranscriptChars: minTranscriptChars,
		logger:             logger,
		state:              State{RunID: uuid.NewString(), Step: StepInput},
		listeners:          make(map[int]func(State)),
	}
}

// State returns a snapshot of the current workflow state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every state change, in order. The returned func
// unregisters it; a snapshot already being delivered may still reach fn once.
// fn runs without the controller lock held, so it may call State or block.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SetGenerator swaps the generator (and therefore the credential) between calls
func (c *Controller) SetGenerator(generator Generator) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight {
		return ErrBusy
	}
	c.generator = generator
	return nil
}

// HasCredential reports whether a generator is configured
func (c *Controller) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generator != nil
}

// Analyze runs the first phase: INPUT -> ANALYZING -> REVIEW, or back to INPUT on failure
func (c *Controller) Analyze(ctx context.Context, transcript string) error {
	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		c.logger.Debug("analyze rejected: request already in flight")
		return ErrBusy
	}
	if c.state.Step != StepInput {
		step := c.state.Step
		c.mu.Unlock()
		c.logger.Debug("analyze rejected in step %s", step)
		return ErrInvalidStep
	}
	if c.generator == nil {
		c.state.Error = MsgMissingCredential
		c.commit()
		return ErrMissingCredential
	}
	if err := c.checkTranscript(transcript); err != nil {
		c.state.Error = capitalize(strings.TrimSuffix(err.Error(), ": "+ErrInvalidInput.Error())) + "."
		c.commit()
		return err
	}

	c.state.Step = StepAnalyzing
	c.state.Error = ""
	c.state.Analysis = nil
	c.state.Script = nil
	callCtx, epoch, generator := c.begin(ctx)
	c.commit()

	c.logger.Info("analyzing transcript (%d chars)", utf8.RuneCountInString(transcript))
	analysis, err := generator.AnalyzeTranscript(callCtx, transcript)

	c.mu.Lock()
	if stale := c.settle(epoch); stale {
		c.mu.Unlock()
		c.logger.Info("discarding analysis outcome from a reset run")
		return ErrWorkflowReset
	}
	if err != nil {
		c.logger.Error("analysis failed: %v", err)
		c.state.Step = StepInput
		c.state.Error = MsgAnalysisFailed
		c.commit()
		return err
	}

	c.state.Analysis = analysis
	c.state.Step = StepReview
	c.commit()
	c.logger.Info("analysis complete: %d sections, %d suggested topics", len(analysis.Structure), len(analysis.SuggestedTopics))
	return nil
}

// Generate runs the second phase: REVIEW -> GENERATING -> RESULT, or back to REVIEW on failure.
// Without a stored analysis the call is ignored.
func (c *Controller) Generate(ctx context.Context, topic, notes string) error {
	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		c.logger.Debug("generate rejected: request already in flight")
		return ErrBusy
	}
	if c.state.Step != StepReview || c.state.Analysis == nil {
		step := c.state.Step
		c.mu.Unlock()
		c.logger.Debug("generate ignored in step %s", step)
		return nil
	}
	if c.generator == nil {
		c.state.Error = MsgMissingCredential
		c.commit()
		return ErrMissingCredential
	}
	if strings.TrimSpace(topic) == "" {
		c.state.Error = "Topic is empty."
		c.commit()
		return invalidInput("topic is empty")
	}

	c.state.Step = StepGenerating
	c.state.Error = ""
	c.state.Script = nil
	analysis := c.state.Analysis
	callCtx, epoch, generator := c.begin(ctx)
	c.commit()

	c.logger.Info("generating script for topic %q", topic)
	script, err := generator.GenerateViralScript(callCtx, analysis, topic, notes)

	c.mu.Lock()
	if stale := c.settle(epoch); stale {
		c.mu.Unlock()
		c.logger.Info("discarding script outcome from a reset run")
		return ErrWorkflowReset
	}
	if err != nil {
		c.logger.Error("generation failed: %v", err)
		c.state.Step = StepReview
		c.state.Error = MsgGenerationFailed
		c.commit()
		return err
	}

	c.state.Script = script
	c.state.Step = StepResult
	c.commit()
	c.logger.Info("script generated: %d title candidates", len(script.TitleCandidates))
	return nil
}

// Restore moves a fresh workflow straight to REVIEW with an analysis produced earlier
func (c *Controller) Restore(analysis *AnalysisResult) error {
	if analysis == nil {
		return invalidInput("analysis is required")
	}

	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state.Step != StepInput {
		c.mu.Unlock()
		return ErrInvalidStep
	}
	c.state.Analysis = analysis
	c.state.Script = nil
	c.state.Error = ""
	c.state.Step = StepReview
	c.commit()
	return nil
}

// Reset returns to INPUT with a fresh run id from any step.
// A call still in flight is cancelled and its outcome discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.epoch++
	c.state = State{RunID: uuid.NewString(), Step: StepInput}
	c.commit()
	c.logger.Debug("workflow reset")
}

// checkTranscript enforces the local preconditions on a transcript
func (c *Controller) checkTranscript(transcript string) error {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return invalidInput("transcript is empty")
	}
	if n := utf8.RuneCountInString(trimmed); n < c.minTranscriptChars {
		return invalidInput("transcript is too short (%d characters, need at least %d)", n, c.minTranscriptChars)
	}
	return nil
}

// begin marks a call in flight; c.mu must be held
func (c *Controller) begin(ctx context.Context) (context.Context, uint64, Generator) {
	callCtx, cancel := context.WithCancel(ctx)
	c.inflight = true
	c.cancel = cancel
	return callCtx, c.epoch, c.generator
}

// settle clears the in-flight mark and reports whether the run was reset meanwhile; c.mu must be held
func (c *Controller) settle(epoch uint64) bool {
	if c.cancel != nil {
		c.cancel()
	}
	c.inflight = false
	c.cancel = nil
	return epoch != c.epoch
}

// commit queues the current state for listeners and releases c.mu, which must be held.
// If another commit is already delivering, it hands the snapshot over and returns;
// otherwise it delivers the queue in order, never holding c.mu while a listener runs.
func (c *Controller) commit() {
	c.pending = append(c.pending, c.state)
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.pending) > 0 {
		snapshot := c.pending[0]
		c.pending = c.pending[1:]
		listeners := make([]func(State), 0, len(c.listeners))
		for _, id := range slices.Sorted(maps.Keys(c.listeners)) {
			listeners = append(listeners, c.listeners[id])
		}
		c.mu.Unlock()

		for _, fn := range listeners {
			fn(snapshot)
		}
		c.mu.Lock()
	}

	c.delivering = false
	c.pending = nil
	c.mu.Unlock()
}

// capitalize upper-cases the first letter of a message
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}

// PhaseMessage returns the user-facing message for an error returned by an intent
func PhaseMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return MsgMissingCredential
	case errors.Is(err, ErrBusy):
		return "A request is already in progress."
	default:
		return err.Error()
	}
}
