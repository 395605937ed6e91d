package internal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerStartsInInput(t *testing.T) {
	c := newTestController(newFakeGenerator())
	state := c.State()

	assert.Equal(t, StepInput, state.Step)
	assert.NotEmpty(t, state.RunID)
	assert.Nil(t, state.Analysis)
	assert.Nil(t, state.Script)
	assert.Empty(t, state.Error)
}

func TestAnalyzeSuccessLandsInReview(t *testing.T) {
	gen := newFakeGenerator()
	c := newTestController(gen)
	rec := &stateRecorder{}
	c.Subscribe(rec.record)

	require.NoError(t, c.Analyze(context.Background(), validTranscript))

	state := c.State()
	assert.Equal(t, StepReview, state.Step)
	assert.Equal(t, gen.analysis, state.Analysis)
	assert.Empty(t, state.Error)
	assert.Equal(t, []Step{StepAnalyzing, StepReview}, rec.steps())
}

func TestAnalyzeFailureRevertsToInput(t *testing.T) {
	gen := newFakeGenerator()
	gen.analyzeErr = &RemoteCallError{Op: "analyze transcript", Err: ErrAuthFailed}
	c := newTestController(gen)
	rec := &stateRecorder{}
	c.Subscribe(rec.record)

	err := c.Analyze(context.Background(), validTranscript)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.True(t, IsCallError(err))

	state := c.State()
	assert.Equal(t, StepInput, state.Step)
	assert.Nil(t, state.Analysis)
	assert.Equal(t, MsgAnalysisFailed, state.Error)
	assert.Equal(t, []Step{StepAnalyzing, StepInput}, rec.steps())
}

func TestAnalyzeRejectsInvalidTranscript(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t "},
		{"too short", "Way too short to analyze."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newFakeGenerator()
			c := newTestController(gen)

			err := c.Analyze(context.Background(), tt.transcript)
			assert.ErrorIs(t, err, ErrInvalidInput)

			analyzeCalls, _ := gen.calls()
			assert.Zero(t, analyzeCalls)
			assert.Equal(t, StepInput, c.State().Step)
			assert.NotEmpty(t, c.State().Error)
		})
	}
}

func TestAnalyzeCountsRunesNotBytes(t *testing.T) {
	c := NewController(newFakeGenerator(), 10, nil)

	// 10 runes, 30 bytes
	assert.NoError(t, c.Analyze(context.Background(), "日本語のテキストです"))
}

func TestAnalyzeWithoutCredential(t *testing.T) {
	c := NewController(nil, 50, nil)

	err := c.Analyze(context.Background(), validTranscript)
	assert.ErrorIs(t, err, ErrMissingCredential)

	state := c.State()
	assert.Equal(t, StepInput, state.Step)
	assert.Equal(t, MsgMissingCredential, state.Error)
	assert.False(t, c.HasCredential())
}

func TestAnalyzeOutsideInputIsInvalidStep(t *testing.T) {
	gen := newFakeGenerator()
	c := newTestController(gen)
	require.NoError(t, c.Analyze(context.Background(), validTranscript))

	err := c.Analyze(context.Background(), validTranscript)
	assert.ErrorIs(t, err, ErrInvalidStep)

	analyzeCalls, _ := gen.calls()
	assert.Equal(t, 1, analyzeCalls)
	assert.Equal(t, StepReview, c.State().Step)
}

func TestGenerateSuccessLandsInResult(t *testing.T) {
	gen := newFakeGenerator()
	c := newTestController(gen)
	require.NoError(t, c.Analyze(context.Background(), validTranscript))

	rec := &stateRecorder{}
	c.Subscribe(rec.record)
	require.NoError(t, c.Generate(context.Background(), "Home espresso", "under 60 seconds"))

	state := c.State()
	assert.Equal(t, StepResult, state.Step)
	assert.Equal(t, gen.script, state.Script)
	assert.Equal(t, gen.analysis, state.Analysis)
	assert.Equal(t, []Step{StepGenerating, StepResult}, rec.steps())
	assert.Equal(t, "Home espresso", gen.lastTopic)
	assert.Equal(t, "under 60 seconds", gen.lastNotes)
}

func TestGenerateFailureKeepsAnalysis(t *testing.T) {
	gen := newFakeGenerator()
	gen.generateErr = &RemoteCallError{Op: "generate script", Err: errors.New("connection reset by peer")}
	c := newTestController(gen)
	require.NoError(t, c.Analyze(context.Background(), validTranscript))

	err := c.Generate(context.Background(), "Home espresso", "")
	require.Error(t, err)

	state := c.State()
	assert.Equal(t, StepReview, state.Step)
	assert.Nil(t, state.Script)
	assert.Equal(t, gen.analysis, state.Analysis)
	assert.Equal(t, MsgGenerationFailed, state.Error)

	// The user can retry from REVIEW
	gen.generateErr = nil
	require.NoError(t, c.Generate(context.Background(), "Home espresso", ""))
	assert.Equal(t, StepResult, c.State().Step)
	assert.Empty(t, c.State().Error)
}

func TestGenerateWithoutAnalysisIsIgnored(t *testing.T) {
	gen := newFakeGenerator()
	c := newTestController(gen)
	rec := &stateRecorder{}
	c.Subscribe(rec.record)
	before := c.State()

	assert.NoError(t, c.Generate(context.Background(), "Home espresso", ""))

	assert.Equal(t, before, c.State())
	assert.Empty(t, rec.steps())
	_, generateCalls := gen.calls()
	assert.Zero(t, generateCalls)
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	gen := newFakeGenerator()
	c := newTestController(gen)
	require.NoError(t, c.Analyze(context.Background(), validTranscript))

	err := c.Generate(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, StepReview, c.State().Step)

	_, generateCalls := gen.calls()
	assert.Zero(t, generateCalls)
}

func TestResetFromEveryStep(t *testing.T) {
	gen := newFakeGenerator()
	c := newTestController(gen)

	runIDs := map[string]bool{c.State().RunID: true}
	assertReset := func() {
		t.Helper()
		c.Reset()
		state := c.State()
		assert.Equal(t, StepInput, state.Step)
		assert.Nil(t, state.Analysis)
		assert.Nil(t, state.Script)
		assert.Empty(t, state.Error)
		assert.False(t, runIDs[state.RunID], "reset must mint a new run id")
		runIDs[state.RunID] = true
	}

	assertReset()

	require.NoError(t, c.Analyze(context.Background(), validTranscript))
	assertReset()

	require.NoError(t, c.Analyze(context.Background(), validTranscript))
	require.NoError(t, c.Generate(context.Background(), "topic", ""))
	assertReset()

	gen.analyzeErr = errors.New("boom")
	require.Error(t, c.Analyze(context.Background(), validTranscript))
	assertReset()
}

func TestAnalyzeWhileInFlightIsRejected(t *testing.T) {
	gen := newFakeGenerator()
	gen.block = make(chan struct{})
	c := newTestController(gen)

	done := make(chan error, 1)
	go func() { done <- c.Analyze(context.Background(), validTranscript) }()
	<-gen.started

	assert.Equal(t, StepAnalyzing, c.State().Step)
	assert.ErrorIs(t, c.Analyze(context.Background(), validTranscript), ErrBusy)
	assert.ErrorIs(t, c.Generate(context.Background(), "topic", ""), ErrBusy)
	assert.ErrorIs(t, c.SetGenerator(newFakeGenerator()), ErrBusy)

	close(gen.block)
	require.NoError(t, <-done)

	analyzeCalls, generateCalls := gen.calls()
	assert.Equal(t, 1, analyzeCalls)
	assert.Zero(t, generateCalls)
	assert.Equal(t, StepReview, c.State().Step)
}

func TestConcurrentAnalyzeIssuesOneCall(t *testing.T) {
	gen := newFakeGenerator()
	gen.block = make(chan struct{})
	c := newTestController(gen)

	const callers = 8
	results := make(chan error, callers)
	var wg sync.WaitGroup

	go func() { results <- c.Analyze(context.Background(), validTranscript) }()
	<-gen.started

	for range callers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Analyze(context.Background(), validTranscript)
		}()
	}
	wg.Wait()
	close(gen.block)

	var succeeded, busy int
	for range callers {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrBusy):
			busy++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, busy)

	analyzeCalls, _ := gen.calls()
	assert.Equal(t, 1, analyzeCalls)
}

func TestResetDuringAnalysisDiscardsLateResult(t *testing.T) {
	gen := newFakeGenerator()
	gen.block = make(chan struct{})
	c := newTestController(gen)

	done := make(chan error, 1)
	go func() { done <- c.Analyze(context.Background(), validTranscript) }()
	<-gen.started
	firstRun := c.State().RunID

	c.Reset()
	state := c.State()
	assert.Equal(t, StepInput, state.Step)
	assert.NotEqual(t, firstRun, state.RunID)

	// The cancelled call has not settled yet
	assert.ErrorIs(t, c.Analyze(context.Background(), validTranscript), ErrBusy)

	close(gen.block)
	assert.ErrorIs(t, <-done, ErrWorkflowReset)

	state = c.State()
	assert.Equal(t, StepInput, state.Step)
	assert.Nil(t, state.Analysis)
	assert.Empty(t, state.Error)

	// The workflow is usable again
	require.NoError(t, c.Analyze(context.Background(), validTranscript))
	assert.Equal(t, StepReview, c.State().Step)
}

func TestResetCancelsInFlightContext(t *testing.T) {
	gen := newFakeGenerator()
	gen.block = make(chan struct{})
	gen.honorCancel = true
	c := newTestController(gen)

	done := make(chan error, 1)
	go func() { done <- c.Analyze(context.Background(), validTranscript) }()
	<-gen.started

	c.Reset()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrWorkflowReset)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight call was not cancelled by reset")
	}
	assert.Empty(t, c.State().Error)
}

func TestCallerCancellationTakesFailureBranch(t *testing.T) {
	gen := newFakeGenerator()
	gen.block = make(chan struct{})
	gen.honorCancel = true
	c := newTestController(gen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Analyze(ctx, validTranscript) }()
	<-gen.started
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StepInput, c.State().Step)
	assert.Equal(t, MsgAnalysisFailed, c.State().Error)
}

func TestSubscribeDeliversInOrderUntilUnsubscribed(t *testing.T) {
	c := newTestController(newFakeGenerator())
	rec := &stateRecorder{}
	unsubscribe := c.Subscribe(rec.record)

	require.NoError(t, c.Analyze(context.Background(), validTranscript))
	require.NoError(t, c.Generate(context.Background(), "topic", ""))
	unsubscribe()
	c.Reset()

	assert.Equal(t, []Step{StepAnalyzing, StepReview, StepGenerating, StepResult}, rec.steps())
}

func TestSetGeneratorRotatesCredential(t *testing.T) {
	c := NewController(nil, 50, nil)
	require.ErrorIs(t, c.Analyze(context.Background(), validTranscript), ErrMissingCredential)

	gen := newFakeGenerator()
	require.NoError(t, c.SetGenerator(gen))
	assert.True(t, c.HasCredential())
	require.NoError(t, c.Analyze(context.Background(), validTranscript))
	assert.Empty(t, c.State().Error)
}

func TestRestoreMovesToReview(t *testing.T) {
	c := newTestController(newFakeGenerator())
	analysis := sampleAnalysis()

	require.NoError(t, c.Restore(analysis))
	assert.Equal(t, StepReview, c.State().Step)
	assert.Equal(t, analysis, c.State().Analysis)

	assert.ErrorIs(t, c.Restore(analysis), ErrInvalidStep)
	assert.ErrorIs(t, c.Restore(nil), ErrInvalidInput)
}

func TestAnalyzeScenarioWithTextStructure(t *testing.T) {
	client := &fakeCompletionClient{response: `{"hookStrategy":"curiosity gap","pacing":"fast","tone":"energetic","structure":"problem-agitate-solve","retentionTechniques":["pattern interrupt"],"audienceTrigger":"FOMO","suggestedTopics":["topic A","topic B","topic C"]}`}
	gen := NewScriptGenerator(client, NewPromptManager("", "English", 20000), "gpt-4o-mini", time.Minute, time.Minute)
	c := newTestController(gen)

	transcript := validTranscript[:200]
	require.NoError(t, c.Analyze(context.Background(), transcript))

	state := c.State()
	assert.Equal(t, StepReview, state.Step)
	assert.Equal(t, &AnalysisResult{
		HookStrategy:    "curiosity gap",
		Pacing:          "fast",
		Tone:            "energetic",
		Structure:       []Section{{Description: "problem-agitate-solve"}},
		ViralFactors:    []string{"pattern interrupt"},
		AudienceTrigger: "FOMO",
		SuggestedTopics: []string{"topic A", "topic B", "topic C"},
	}, state.Analysis)
}

func TestGenerateScenarioTransportError(t *testing.T) {
	client := &fakeCompletionClient{response: `{"hookStrategy":"curiosity gap","pacing":"fast","tone":"energetic","structure":"problem-agitate-solve","suggestedTopics":["topic A"]}`}
	gen := NewScriptGenerator(client, NewPromptManager("", "English", 20000), "gpt-4o-mini", time.Minute, time.Minute)
	c := newTestController(gen)
	require.NoError(t, c.Analyze(context.Background(), validTranscript))

	client.err = errors.New("dial tcp: connection refused")
	err := c.Generate(context.Background(), "topic A", "")

	var remoteErr *RemoteCallError
	require.ErrorAs(t, err, &remoteErr)
	state := c.State()
	assert.Equal(t, StepReview, state.Step)
	assert.Nil(t, state.Script)
	assert.Equal(t, MsgGenerationFailed, state.Error)
}

func TestBlockedListenerDoesNotStallController(t *testing.T) {
	c := newTestController(newFakeGenerator())
	loop := make(chan State)
	entered := make(chan struct{}, 4)
	c.Subscribe(func(state State) {
		entered <- struct{}{}
		loop <- state
	})

	go c.Reset()
	<-entered

	// A second change while the first delivery is blocked is queued, not waited on
	secondDone := make(chan struct{})
	go func() {
		c.Reset()
		close(secondDone)
	}()
	select {
	case <-secondDone:
	case <-time.After(2 * time.Second):
		t.Fatal("reset blocked behind a listener")
	}

	current := make(chan State, 1)
	go func() { current <- c.State() }()
	var latest State
	select {
	case latest = <-current:
	case <-time.After(2 * time.Second):
		t.Fatal("State blocked behind a listener")
	}

	first := <-loop
	second := <-loop
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, latest.RunID, second.RunID)
}

func TestListenerMayReadState(t *testing.T) {
	c := newTestController(newFakeGenerator())
	var seen []Step
	c.Subscribe(func(state State) {
		seen = append(seen, c.State().Step)
	})

	require.NoError(t, c.Analyze(context.Background(), validTranscript))
	assert.Equal(t, []Step{StepAnalyzing, StepReview}, seen)
}
