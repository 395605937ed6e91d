package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tuiFocus int

const (
	tuiFocusTopics tuiFocus = iota
	tuiFocusNotes
)

type tuiModel struct {
	ctx        context.Context
	app        *App
	controller *Controller

	state  State
	width  int
	height int

	transcript textarea.Model
	topic      textinput.Model
	notes      textinput.Model
	apiKey     textinput.Model
	spinner    spinner.Model
	result     viewport.Model

	cursor        int
	focus         tuiFocus
	enteringKey   bool
	statusMessage string
}

// stateMsg carries a controller snapshot into the program
type stateMsg State

type intentDoneMsg struct {
	err error
}

type keySavedMsg struct {
	err error
}

type copiedMsg struct {
	err error
}

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tuiMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	tuiOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	tuiLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	tuiPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	tuiSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func newTUIModel(ctx context.Context, app *App) tuiModel {
	transcript := textarea.New()
	transcript.Placeholder = "Paste the transcript of a video that performed well..."
	transcript.CharLimit = 0
	transcript.ShowLineNumbers = false
	transcript.SetWidth(80)
	transcript.SetHeight(12)
	transcript.Focus()

	topic := textinput.New()
	topic.Placeholder = "Your own topic"
	topic.Prompt = "> "

	notes := textinput.New()
	notes.Placeholder = "Optional: extra instruction for the script"
	notes.Prompt = "> "

	apiKey := textinput.New()
	apiKey.Placeholder = "API key"
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := tuiModel{
		ctx:        ctx,
		app:        app,
		controller: app.Controller(),
		state:      app.Controller().State(),
		transcript: transcript,
		topic:      topic,
		notes:      notes,
		apiKey:     apiKey,
		spinner:    spin,
		result:     viewport.New(80, 20),
		width:      80,
		height:     24,
	}
	if !m.controller.HasCredential() {
		m = m.startKeyEntry()
	}
	return m
}

// RunTUI runs the interactive workflow until the user quits
func RunTUI(ctx context.Context, app *App) error {
	p := tea.NewProgram(newTUIModel(ctx, app), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := app.Controller().Subscribe(func(state State) {
		p.Send(stateMsg(state))
	})
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.SetWidth(max(msg.Width-4, 20))
		m.transcript.SetHeight(max(msg.Height-10, 5))
		m.result.Width = max(msg.Width-2, 20)
		m.result.Height = max(msg.Height-6, 5)
		m = m.renderResult()
		return m, nil
	case stateMsg:
		return m.applyState(State(msg)), nil
	case intentDoneMsg:
		m = m.applyState(m.controller.State())
		switch {
		case msg.err == nil, errors.Is(msg.err, ErrWorkflowReset):
		case errors.Is(msg.err, ErrMissingCredential):
			m = m.startKeyEntry()
		case m.state.Error == "":
			m.statusMessage = PhaseMessage(msg.err)
		}
		return m, nil
	case keySavedMsg:
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.enteringKey = false
		m.apiKey.Reset()
		m.apiKey.Blur()
		m.statusMessage = "API key saved for this session"
		m = m.focusForStep()
		return m, nil
	case copiedMsg:
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
		} else {
			m.statusMessage = "script copied to clipboard"
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInputs(msg)
	}

	switch keyMsg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		if m.enteringKey {
			return m, nil
		}
		m.statusMessage = ""
		return m, m.resetCmd()
	}

	if m.enteringKey {
		return m.updateKeyEntry(keyMsg)
	}

	switch m.state.Step {
	case StepInput:
		return m.updateInput(keyMsg)
	case StepReview:
		return m.updateReview(keyMsg)
	case StepResult:
		return m.updateResult(keyMsg)
	default:
		// A call is running: only quit and reset are available
		if keyMsg.String() == "esc" {
			return m, tea.Quit
		}
		return m, nil
	}
}

func (m tuiModel) updateKeyEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if !m.controller.HasCredential() {
			return m, tea.Quit
		}
		m.enteringKey = false
		m.apiKey.Reset()
		m = m.focusForStep()
		return m, nil
	case "enter":
		key := strings.TrimSpace(m.apiKey.Value())
		if key == "" {
			m.statusMessage = "enter an API key, or esc to quit"
			return m, nil
		}
		return m, m.saveKeyCmd(key)
	}
	var cmd tea.Cmd
	m.apiKey, cmd = m.apiKey.Update(msg)
	return m, cmd
}

func (m tuiModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "ctrl+k":
		return m.startKeyEntry(), nil
	case "ctrl+s":
		transcript := m.transcript.Value()
		if strings.TrimSpace(transcript) == "" {
			m.statusMessage = "paste a transcript first"
			return m, nil
		}
		m.statusMessage = ""
		return m, tea.Batch(m.analyzeCmd(transcript), m.spinner.Tick)
	}
	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m tuiModel) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	customRow := m.customTopicRow()

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab":
		if m.focus == tuiFocusTopics {
			m.focus = tuiFocusNotes
			m.topic.Blur()
			m.notes.Focus()
		} else {
			m.focus = tuiFocusTopics
			m.notes.Blur()
			if m.cursor == customRow {
				m.topic.Focus()
			}
		}
		return m, nil
	case "up":
		if m.focus == tuiFocusTopics && m.cursor > 0 {
			m.cursor--
			m.topic.Blur()
		}
		return m, nil
	case "down":
		if m.focus == tuiFocusTopics && m.cursor < customRow {
			m.cursor++
			if m.cursor == customRow {
				m.topic.Focus()
			}
		}
		return m, nil
	case "enter":
		topic := m.selectedTopic()
		if strings.TrimSpace(topic) == "" {
			m.statusMessage = "choose a topic or type your own"
			return m, nil
		}
		m.statusMessage = ""
		return m, tea.Batch(m.generateCmd(topic, m.notes.Value()), m.spinner.Tick)
	}

	var cmd tea.Cmd
	switch {
	case m.focus == tuiFocusNotes:
		m.notes, cmd = m.notes.Update(msg)
	case m.cursor == customRow:
		m.topic, cmd = m.topic.Update(msg)
	case msg.String() == "k" && m.cursor > 0:
		m.cursor--
	case msg.String() == "j" && m.cursor < customRow:
		m.cursor++
		if m.cursor == customRow {
			m.topic.Focus()
		}
	}
	return m, cmd
}

func (m tuiModel) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "c":
		if m.state.Script == nil {
			return m, nil
		}
		return m, copyCmd(m.state.Script.Markdown())
	case "n":
		m.statusMessage = ""
		return m, m.resetCmd()
	}
	var cmd tea.Cmd
	m.result, cmd = m.result.Update(msg)
	return m, cmd
}

// updateInputs forwards non-key messages (cursor blink) to the focused input
func (m tuiModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.enteringKey:
		m.apiKey, cmd = m.apiKey.Update(msg)
	case m.state.Step == StepInput:
		m.transcript, cmd = m.transcript.Update(msg)
	case m.state.Step == StepReview && m.focus == tuiFocusNotes:
		m.notes, cmd = m.notes.Update(msg)
	case m.state.Step == StepReview:
		m.topic, cmd = m.topic.Update(msg)
	}
	return m, cmd
}

// applyState takes a new snapshot and adjusts focus when the step changed
func (m tuiModel) applyState(state State) tuiModel {
	previous := m.state
	m.state = state

	if state.RunID != previous.RunID {
		m.cursor = 0
		m.focus = tuiFocusTopics
		m.topic.Reset()
		m.notes.Reset()
		m.transcript.Reset()
	}
	if state.Step != previous.Step {
		m = m.focusForStep()
	}
	if state.Script != previous.Script {
		m = m.renderResult()
	}
	return m
}

func (m tuiModel) focusForStep() tuiModel {
	m.transcript.Blur()
	m.topic.Blur()
	m.notes.Blur()
	switch m.state.Step {
	case StepInput:
		m.transcript.Focus()
	case StepReview:
		if m.focus == tuiFocusNotes {
			m.notes.Focus()
		} else if m.cursor == m.customTopicRow() {
			m.topic.Focus()
		}
	}
	return m
}

func (m tuiModel) startKeyEntry() tuiModel {
	m.enteringKey = true
	m.transcript.Blur()
	m.topic.Blur()
	m.notes.Blur()
	m.apiKey.Focus()
	return m
}

func (m tuiModel) renderResult() tuiModel {
	if m.state.Script == nil {
		m.result.SetContent("")
		return m
	}
	content := m.state.Script.Markdown()
	rendered, err := RenderMarkdownWidth(content, max(m.result.Width-2, 20))
	if err != nil {
		rendered = content
	}
	m.result.SetContent(rendered)
	m.result.GotoTop()
	return m
}

func (m tuiModel) customTopicRow() int {
	if m.state.Analysis == nil {
		return 0
	}
	return len(m.state.Analysis.SuggestedTopics)
}

func (m tuiModel) selectedTopic() string {
	if m.state.Analysis != nil && m.cursor < len(m.state.Analysis.SuggestedTopics) {
		return m.state.Analysis.SuggestedTopics[m.cursor]
	}
	return m.topic.Value()
}

// Intents run as commands: listeners call p.Send, which must not happen inside Update

func (m tuiModel) analyzeCmd(transcript string) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		return intentDoneMsg{err: controller.Analyze(ctx, transcript)}
	}
}

func (m tuiModel) generateCmd(topic, notes string) tea.Cmd {
	ctx, controller := m.ctx, m.controller
	return func() tea.Msg {
		return intentDoneMsg{err: controller.Generate(ctx, topic, notes)}
	}
}

func (m tuiModel) resetCmd() tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		controller.Reset()
		return intentDoneMsg{}
	}
}

func (m tuiModel) saveKeyCmd(key string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		return keySavedMsg{err: app.SetAPIKey(key, false)}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: CopyToClipboard(text)}
	}
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render("viralscripter"))
	b.WriteString(tuiMutedStyle.Render("  " + m.state.Step.String()))
	b.WriteString("\n\n")

	switch {
	case m.enteringKey:
		b.WriteString(m.viewKeyEntry())
	case m.state.Step == StepInput:
		b.WriteString(m.viewInput())
	case m.state.Step == StepAnalyzing:
		b.WriteString(m.spinner.View() + " Analyzing the transcript...\n")
		b.WriteString(tuiMutedStyle.Render("ctrl+r cancel"))
	case m.state.Step == StepReview:
		b.WriteString(m.viewReview())
	case m.state.Step == StepGenerating:
		b.WriteString(m.spinner.View() + " Writing your script...\n")
		b.WriteString(tuiMutedStyle.Render("ctrl+r cancel"))
	case m.state.Step == StepResult:
		b.WriteString(m.result.View())
		b.WriteString("\n")
		b.WriteString(tuiMutedStyle.Render("↑/↓ scroll • c copy • n new run • q quit"))
	}

	if m.state.Error != "" {
		b.WriteString("\n\n" + tuiErrorStyle.Render(m.state.Error))
	}
	if m.statusMessage != "" {
		style := tuiOKStyle
		if strings.HasPrefix(m.statusMessage, "error:") {
			style = tuiErrorStyle
		}
		b.WriteString("\n" + style.Render(m.statusMessage))
	}
	return b.String()
}

func (m tuiModel) viewKeyEntry() string {
	var b strings.Builder
	b.WriteString("Enter your API key to continue.\n")
	b.WriteString(tuiMutedStyle.Render("It is used for this session only. A key saved with `viralscripter key set` stays on disk."))
	b.WriteString("\n\n")
	b.WriteString(m.apiKey.View())
	b.WriteString("\n\n")
	b.WriteString(tuiMutedStyle.Render("enter save • esc back"))
	return b.String()
}

func (m tuiModel) viewInput() string {
	var b strings.Builder
	b.WriteString(m.transcript.View())
	b.WriteString("\n\n")
	b.WriteString(tuiMutedStyle.Render("ctrl+s analyze • ctrl+k API key • esc quit"))
	return b.String()
}

func (m tuiModel) viewReview() string {
	analysis := m.state.Analysis
	if analysis == nil {
		return ""
	}

	var panel strings.Builder
	panel.WriteString(tuiLabelStyle.Render("Hook") + "  " + analysis.HookStrategy + "\n")
	panel.WriteString(tuiLabelStyle.Render("Pacing") + "  " + analysis.Pacing + "\n")
	panel.WriteString(tuiLabelStyle.Render("Tone") + "  " + analysis.Tone + "\n")
	if analysis.AudienceTrigger != "" {
		panel.WriteString(tuiLabelStyle.Render("Trigger") + "  " + analysis.AudienceTrigger + "\n")
	}
	if len(analysis.ViralFactors) > 0 {
		panel.WriteString(tuiLabelStyle.Render("Viral factors") + "  " + strings.Join(analysis.ViralFactors, " • ") + "\n")
	}
	panel.WriteString(tuiLabelStyle.Render("Structure") + "\n")
	for i, section := range analysis.Structure {
		line := section.Description
		if section.SectionName != "" {
			line = section.SectionName + ": " + line
		}
		if section.EstimatedDuration != "" {
			line += tuiMutedStyle.Render(" (" + section.EstimatedDuration + ")")
		}
		panel.WriteString(fmt.Sprintf("  %d. %s\n", i+1, line))
	}

	var b strings.Builder
	b.WriteString(tuiPanelStyle.Width(max(m.width-4, 20)).Render(strings.TrimRight(panel.String(), "\n")))
	b.WriteString("\n\n" + tuiTitleStyle.Render("Pick a topic") + "\n")
	for i, topic := range analysis.SuggestedTopics {
		b.WriteString(m.topicRow(i, topic) + "\n")
	}
	b.WriteString(m.topicRow(m.customTopicRow(), m.topic.View()) + "\n\n")
	b.WriteString(tuiLabelStyle.Render("Notes") + "\n" + m.notes.View() + "\n\n")
	b.WriteString(tuiMutedStyle.Render("↑/↓ choose • tab notes • enter generate • ctrl+r start over • esc quit"))
	return b.String()
}

func (m tuiModel) topicRow(index int, label string) string {
	if index == m.cursor && m.focus == tuiFocusTopics {
		if index == m.customTopicRow() {
			return tuiSelStyle.Render(">") + " " + label
		}
		return tuiSelStyle.Render("> " + label)
	}
	return "  " + label
}
