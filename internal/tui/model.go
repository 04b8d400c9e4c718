package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/repost/internal/settings"
	"github.com/csheth/repost/internal/telegram"
	"github.com/csheth/repost/internal/workflow"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Session      *workflow.Session
	Settings     *settings.Store
	ProviderName string
	CaptionLimit int
	Logger       *zap.Logger
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.CaptionLimit <= 0 {
		config.CaptionLimit = telegram.DefaultCaptionLimit
	}

	urlInput := textinput.New()
	urlInput.Placeholder = urlPlaceholder
	urlInput.Focus()
	urlInput.CharLimit = 2048
	urlInput.Width = 70

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 4096
	editor.SetWidth(76)
	editor.SetHeight(8)

	fields := make([]textinput.Model, settingsFieldCount)
	labels := []string{"OpenRouter API key", "Telegram bot token", "Channel ID (@name or -100…)"}
	for i := range fields {
		input := textinput.New()
		input.Placeholder = labels[i]
		input.CharLimit = 256
		input.Width = 60
		if i != settingsFieldChannel {
			input.EchoMode = textinput.EchoPassword
			input.EchoCharacter = '•'
		}
		fields[i] = input
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 12)
	vp.MouseWheelEnabled = true

	m := &model{
		config:         config,
		stage:          stageInput,
		urlInput:       urlInput,
		editor:         editor,
		settingsInputs: fields,
		spinner:        spin,
		viewport:       vp,
		layout:         newPageLayout(),
		jobs:           newJobBus(config.Logger),
		lastJobs:       map[jobKind]jobSnapshot{},
		viewportDirty:  true,
		notice:         workflow.Notice{Message: "Paste an article URL to begin."},
	}
	m.refreshState()
	return m
}

type model struct {
	config Config
	stage  stage
	// returnStage is restored when an overlay (edit, settings, url) closes.
	returnStage stage

	urlInput       textinput.Model
	editor         textarea.Model
	settingsInputs []textinput.Model
	settingsFocus  int
	spinner        spinner.Model
	viewport       viewport.Model
	layout         pageLayout

	jobs     *jobBus
	lastJobs map[jobKind]jobSnapshot
	// fetchID is the ticket of the fetch the loading screen waits for.
	fetchID uint64

	state         workflow.State
	notice        workflow.Notice
	helpVisible   bool
	viewportDirty bool
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.stage == stageLoading || m.state.Busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		if m.stage == stageDisplay {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.editor.SetWidth(m.layout.viewportWidth)
		m.editor.SetHeight(m.layout.editorHeight)
		m.markViewportDirty()
		return m, nil
	case jobSignalMsg:
		m.lastJobs[msg.Snapshot.Kind] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		m.lastJobs[msg.Snapshot.Kind] = msg.Snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case fetchResultMsg:
		m.refreshState()
		m.notice = msg.notice
		if msg.id != m.fetchID {
			m.markViewportDirty()
			return m, nil
		}
		if msg.err != nil && m.state.Total == 0 {
			m.stage = stageInput
			m.urlInput.Focus()
			return m, nil
		}
		m.stage = stageDisplay
		if msg.err == nil {
			m.urlInput.SetValue("")
			m.urlInput.Blur()
			m.viewport.GotoTop()
		}
		m.markViewportDirty()
		return m, nil
	case generateResultMsg:
		m.refreshState()
		m.notice = msg.notice
		m.markViewportDirty()
		return m, nil
	case publishResultMsg:
		m.refreshState()
		m.notice = msg.notice
		return m, nil
	case settingsSavedMsg:
		if msg.err != nil {
			m.notice = workflow.ErrorNotice(msg.err)
			return m, nil
		}
		m.notice = workflow.Notice{Level: workflow.LevelSuccess, Message: "Settings saved"}
		m.closeOverlay()
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageInput:
		return m.handleInputKey(key)
	case stageLoading:
		if key.Type == tea.KeyEsc {
			m.abandonFetch()
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(key)
		return m, cmd
	case stageDisplay:
		return m.handleDisplayKey(key)
	case stageEdit:
		return m.handleEditKey(key)
	case stageSettings:
		return m.handleSettingsKey(key)
	default:
		return m, nil
	}
}

func (m *model) handleInputKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		if m.state.Total > 0 {
			m.urlInput.Blur()
			m.stage = stageDisplay
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyEnter:
		return m, m.startFetch(m.urlInput.Value())
	}
	if key.String() == "ctrl+o" {
		return m, m.openSettings()
	}
	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(key)
	return m, cmd
}

func (m *model) handleDisplayKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "q":
		return m, tea.Quit
	case "n", "right":
		m.notice = m.session().Next()
		m.afterNavigation()
	case "p", "left":
		m.notice = m.session().Previous()
		m.afterNavigation()
	case "g":
		return m, m.startGenerate()
	case "s":
		return m, m.startPublish()
	case "e":
		return m, m.openEditor()
	case "u":
		if !m.commandAvailable(actionNewURL) {
			m.notice = m.unavailable(actionNewURL)
			return m, nil
		}
		m.stage = stageInput
		m.urlInput.SetValue("")
		return m, m.urlInput.Focus()
	case ",":
		return m, m.openSettings()
	case "?":
		m.helpVisible = !m.helpVisible
	case "home":
		m.viewport.GotoTop()
	case "end":
		m.viewport.GotoBottom()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleEditKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.notice = workflow.Notice{Message: "Edit canceled."}
		m.closeOverlay()
		return m, nil
	case "ctrl+s":
		notice, err := m.session().EditCaption(m.editor.Value())
		m.notice = notice
		if err != nil {
			return m, nil
		}
		m.refreshState()
		m.closeOverlay()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(key)
	return m, cmd
}

func (m *model) handleSettingsKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.notice = workflow.Notice{Message: "Settings unchanged."}
		m.closeOverlay()
		return m, nil
	case "tab", "down":
		return m, m.focusSetting(m.settingsFocus + 1)
	case "shift+tab", "up":
		return m, m.focusSetting(m.settingsFocus - 1)
	case "enter":
		if m.settingsFocus < settingsFieldCount-1 {
			return m, m.focusSetting(m.settingsFocus + 1)
		}
		return m, m.saveSettings()
	case "ctrl+s":
		return m, m.saveSettings()
	}
	var cmd tea.Cmd
	m.settingsInputs[m.settingsFocus], cmd = m.settingsInputs[m.settingsFocus].Update(key)
	return m, cmd
}

func (m *model) session() *workflow.Session {
	return m.config.Session
}

func (m *model) startFetch(rawURL string) tea.Cmd {
	if m.session() == nil {
		m.notice = workflow.Notice{Level: workflow.LevelError, Message: "No session configured"}
		return nil
	}
	ticket, err := m.session().BeginFetch(rawURL)
	if err != nil {
		m.notice = workflow.ErrorNotice(err)
		return nil
	}
	m.refreshState()
	m.fetchID = ticket.ID()
	m.stage = stageLoading
	m.notice = workflow.Notice{Message: "Fetching article… (Esc to abandon)"}
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindFetch, fetchJob(m.session(), ticket)))
}

// abandonFetch stops waiting for the in-flight fetch. Its result is
// discarded when it arrives.
func (m *model) abandonFetch() {
	m.session().Release()
	m.fetchID = 0
	m.refreshState()
	m.notice = workflow.Notice{Level: workflow.LevelWarning, Message: "Fetch abandoned"}
	if m.state.Total > 0 {
		m.stage = stageDisplay
	} else {
		m.stage = stageInput
		m.urlInput.Focus()
	}
	m.markViewportDirty()
}

func (m *model) startGenerate() tea.Cmd {
	if !m.commandAvailable(actionGenerate) {
		m.notice = m.unavailable(actionGenerate)
		return nil
	}
	ticket, err := m.session().BeginGenerate()
	if err != nil {
		m.notice = workflow.ErrorNotice(err)
		return nil
	}
	m.refreshState()
	m.notice = workflow.Notice{Message: fmt.Sprintf("Generating a post for segment %d…", ticket.Index+1)}
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindGenerate, generateJob(m.session(), ticket)))
}

func (m *model) startPublish() tea.Cmd {
	if !m.commandAvailable(actionPublish) {
		m.notice = m.unavailable(actionPublish)
		return nil
	}
	ticket, err := m.session().BeginPublish()
	if err != nil {
		m.notice = workflow.ErrorNotice(err)
		return nil
	}
	m.refreshState()
	m.notice = workflow.Notice{Message: fmt.Sprintf("Publishing to %s…", ticket.Photo.ChatID)}
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindPublish, publishJob(m.session(), ticket)))
}

func (m *model) openEditor() tea.Cmd {
	if !m.commandAvailable(actionEdit) {
		m.notice = m.unavailable(actionEdit)
		return nil
	}
	m.returnStage = m.stage
	m.stage = stageEdit
	m.editor.SetValue(m.state.Result.Caption)
	m.notice = workflow.Notice{Message: "Editing caption. Ctrl+S saves, Esc cancels."}
	return m.editor.Focus()
}

func (m *model) openSettings() tea.Cmd {
	if !m.commandAvailable(actionSettings) {
		m.notice = m.unavailable(actionSettings)
		return nil
	}
	values := m.config.Settings.Get()
	m.settingsInputs[settingsFieldKey].SetValue(values.OpenRouterKey)
	m.settingsInputs[settingsFieldToken].SetValue(values.TelegramBotToken)
	m.settingsInputs[settingsFieldChannel].SetValue(values.ChannelID)
	m.returnStage = m.stage
	m.stage = stageSettings
	m.urlInput.Blur()
	m.notice = workflow.Notice{Message: "Tab moves between fields, Enter on the last field saves."}
	return m.focusSetting(settingsFieldKey)
}

func (m *model) focusSetting(index int) tea.Cmd {
	if index < 0 {
		index = settingsFieldCount - 1
	}
	if index >= settingsFieldCount {
		index = 0
	}
	for i := range m.settingsInputs {
		m.settingsInputs[i].Blur()
	}
	m.settingsFocus = index
	return m.settingsInputs[index].Focus()
}

func (m *model) saveSettings() tea.Cmd {
	store := m.config.Settings
	values := settings.Values{
		OpenRouterKey:    m.settingsInputs[settingsFieldKey].Value(),
		TelegramBotToken: m.settingsInputs[settingsFieldToken].Value(),
		ChannelID:        m.settingsInputs[settingsFieldChannel].Value(),
	}
	return func() tea.Msg {
		return settingsSavedMsg{err: store.Save(values)}
	}
}

func (m *model) closeOverlay() {
	m.editor.Blur()
	for i := range m.settingsInputs {
		m.settingsInputs[i].Blur()
	}
	next := m.returnStage
	if next == stageEdit || next == stageSettings || next == stageLoading {
		next = stageDisplay
	}
	if m.state.Total == 0 && m.state.Revision == 0 {
		next = stageInput
	}
	m.stage = next
	if next == stageInput {
		m.urlInput.Focus()
	}
	m.markViewportDirty()
}

func (m *model) afterNavigation() {
	m.refreshState()
	m.viewport.GotoTop()
	m.markViewportDirty()
}

func (m *model) unavailable(a action) workflow.Notice {
	message := unavailableMessage(a)
	if m.state.Busy && (a == actionGenerate || a == actionPublish || a == actionNewURL) {
		message = unavailableMessage(actionNewURL)
	}
	return workflow.Notice{Level: workflow.LevelWarning, Message: message}
}

func (m *model) refreshState() {
	if m.session() == nil {
		m.state = workflow.State{}
		return
	}
	m.state = m.session().Snapshot()
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}
