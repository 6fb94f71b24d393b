package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/dungeon-master/internal/dm"
	"github.com/jwebster45206/dungeon-master/pkg/dice"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
)

// entry kinds in the chat log
const (
	entryPlayer = iota
	entryNarrator
	entryInfo
	entryError
)

type entry struct {
	kind int
	text string
}

// UI is the BubbleTea model that runs the console.
// https://github.com/charmbracelet/bubbletea
type UI struct {
	factory EngineFactory
	roller  *dice.Roller
	timeout time.Duration
	copy    func(string) error

	engine       Runner
	scenario     string
	log          []entry
	lastNarrate  string
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Scenario selection state
	showScenarioModal bool
	scenarios         []string
	selectedScenario  int

	showQuitModal bool

	progressTick int
}

type turnMsg struct {
	result *dm.TurnResult
	err    error
}

type engineStartedMsg struct {
	scenario string
	engine   Runner
	err      error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

const helpText = `Commands:
• /help - Show this help
• /session - Show the current session as JSON
• /roll <formula> [advantage|disadvantage] - Roll dice, e.g. /roll 2d6+1
• /copy - Copy the last narration to the clipboard
• Ctrl+C - Quit

How to play:
• Describe what your character does and press Enter
• The dungeon master interprets it, rolls checks and narrates the result`

// NewUI builds the console. scenarios lists the choices offered at start.
func NewUI(factory EngineFactory, scenarios []string, roller *dice.Roller, timeout time.Duration) UI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return UI{
		factory:           factory,
		roller:            roller,
		timeout:           timeout,
		copy:              clipboard.WriteAll,
		textarea:          ta,
		chatViewport:      chatVp,
		metaViewport:      viewport.New(20, 20),
		showScenarioModal: true,
		scenarios:         scenarios,
	}
}

func (m UI) Init() tea.Cmd {
	return textarea.Blink
}

func (m UI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeChatContent()
		m.writeSessionPanel()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				m.handleCommand(input)
				m.writeChatContent()
				return m, nil
			}

			m.loading = true
			m.progressTick = 0
			m.log = append(m.log, entry{kind: entryPlayer, text: input})
			m.writeChatContent()
			return m, tea.Batch(m.runTurn(input), progressTick())
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.log = append(m.log, entry{kind: entryError, text: msg.err.Error()})
		} else {
			m.appendTurn(msg.result)
		}
		m.writeChatContent()
		m.writeSessionPanel()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *UI) appendTurn(tr *dm.TurnResult) {
	for _, line := range resultLines(tr.Results) {
		m.log = append(m.log, entry{kind: entryInfo, text: line})
	}
	if tr.Narrative.IsError() {
		m.log = append(m.log, entry{kind: entryError, text: tr.Narrative.Text()})
		return
	}
	m.lastNarrate = tr.Narrative.Text()
	m.log = append(m.log, entry{kind: entryNarrator, text: m.lastNarrate})
}

func (m *UI) handleCommand(input string) {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/help":
		m.log = append(m.log, entry{kind: entryInfo, text: helpText})

	case "/session":
		m.log = append(m.log, entry{kind: entryInfo, text: sessionJSON(m.engine.Session())})

	case "/roll":
		out, err := rollCommand(m.roller, fields[1:])
		if err != nil {
			m.log = append(m.log, entry{kind: entryError, text: err.Error()})
			return
		}
		m.log = append(m.log, entry{kind: entryInfo, text: "Roll: " + out})

	case "/copy":
		if m.lastNarrate == "" {
			m.log = append(m.log, entry{kind: entryInfo, text: "Nothing to copy yet."})
			return
		}
		if err := m.copy(m.lastNarrate); err != nil {
			m.log = append(m.log, entry{kind: entryError, text: "Copy failed: " + err.Error()})
			return
		}
		m.log = append(m.log, entry{kind: entryInfo, text: "Copied the last narration."})

	default:
		m.log = append(m.log, entry{kind: entryError, text: fmt.Sprintf("Unknown command %s. Try /help.", fields[0])})
	}
}

func (m UI) runTurn(input string) tea.Cmd {
	engine := m.engine
	timeout := m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		tr, err := engine.RunTurn(ctx, input)
		return turnMsg{result: tr, err: err}
	}
}

func (m UI) startEngine(scenario string) tea.Cmd {
	factory := m.factory
	return func() tea.Msg {
		engine, err := factory(scenario)
		return engineStartedMsg{scenario: scenario, engine: engine, err: err}
	}
}

func (m *UI) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

// writeChatContent rebuilds the chat log for the current viewport width.
func (m *UI) writeChatContent() {
	width := m.chatViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("DUNGEON MASTER") + "\n\n")
	if m.scenario != "" {
		content.WriteString(infoStyle.Render("Scenario: "+m.scenario) + "\n")
	}
	content.WriteString("Type /help for commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.log {
		content.WriteString(formatEntry(e, width) + "\n\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *UI) writeSessionPanel() {
	if m.engine == nil {
		return
	}
	m.metaViewport.SetContent(titleStyle.Render("SESSION") + "\n\n" +
		wordwrap.String(sessionSummary(m.engine.Session()), max(m.metaViewport.Width, 10)))
}

func formatEntry(e entry, width int) string {
	switch e.kind {
	case entryPlayer:
		return userStyle.Render("You: ") + wordwrap.String(e.text, width-5)
	case entryNarrator:
		return formatNarration(e.text, width)
	case entryError:
		return errorStyle.Render("Error: " + wordwrap.String(e.text, width-7))
	default:
		return infoStyle.Render(wordwrap.String(e.text, width))
	}
}

// formatNarration prefixes the narrator's name and wraps to width.
func formatNarration(text string, width int) string {
	prefix := AgentName + ": "
	wrapped := wordwrap.String(text, width-len(prefix))
	return narratorStyle.Render(prefix) + wrapped
}

func (m UI) updateScenarioModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case engineStartedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.engine = msg.engine
		m.scenario = msg.scenario
		m.showScenarioModal = false
		m.resize()
		m.ready = true
		m.writeChatContent()
		m.writeSessionPanel()
		m.textarea.Focus()
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedScenario > 0 {
				m.selectedScenario--
			}
		case tea.KeyDown:
			if m.selectedScenario < len(m.scenarios)-1 {
				m.selectedScenario++
			}
		case tea.KeyEnter:
			if len(m.scenarios) > 0 {
				m.err = nil
				m.loading = true
				return m, m.startEngine(m.scenarios[m.selectedScenario])
			}
		}
	}
	return m, nil
}

func (m UI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}
	return m, nil
}

func (m UI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("The game state is not saved. Quit anyway?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m UI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Starting Game..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Preparing your adventure..."))
	case len(m.scenarios) == 0:
		content.WriteString(modalTitleStyle.Render("No Scenarios"))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	default:
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")
		for i, s := range m.scenarios {
			if i == m.selectedScenario {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", s)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", s)))
			}
			content.WriteString("\n")
		}
		if m.err != nil {
			content.WriteString("\n")
			content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m UI) View() string {
	if m.showScenarioModal {
		return m.renderScenarioModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m UI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
