package widget

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smartbotly/smartbotly/internal/models"
)

const (
	defaultTermWidth  = 64
	defaultTermHeight = 24
	inputCharLimit    = 2000
	chromeHeight      = 6 // header, borders, input, branding
)

// Program runs the widget as a terminal application.
type Program struct {
	model uiModel
}

// NewProgram builds the terminal front end around a session.
func NewProgram(session *Session) *Program {
	return &Program{model: newUIModel(session)}
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	program := tea.NewProgram(p.model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Bubble Tea messages for the send lifecycle. Network work happens inside
// commands; the session is only mutated from Update.
type (
	flatReplyMsg      struct{ text string }
	streamStartMsg    struct{ fragments <-chan string }
	streamFragMsg     struct{ frag string }
	streamDoneMsg     struct{}
	sendFailedMsg     struct{ err error }
	usageExhaustedMsg struct{}
	usageRejectedMsg  struct{}
)

type uiModel struct {
	session *Session

	input textinput.Model
	view  viewport.Model

	fragments <-chan string

	width  int
	height int

	header   lipgloss.Style
	botText  lipgloss.Style
	userText lipgloss.Style
	muted    lipgloss.Style
	frame    lipgloss.Style
	bubble   lipgloss.Style
}

func newUIModel(session *Session) uiModel {
	cfg := session.Config()
	palette := cfg.Palette()

	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.CharLimit = inputCharLimit
	input.Width = defaultTermWidth - 4
	input.Focus()

	view := viewport.New(defaultTermWidth, defaultTermHeight-chromeHeight)

	primary := lipgloss.Color(cfg.PrimaryColor)
	m := uiModel{
		session:  session,
		input:    input,
		view:     view,
		width:    defaultTermWidth,
		height:   defaultTermHeight,
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(primary).Padding(0, 1),
		botText:  lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Text)),
		userText: lipgloss.NewStyle().Foreground(lipgloss.Color(palette.UserBubble)),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Muted)),
		frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(palette.Border)),
		bubble:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 2),
	}
	m.refresh()
	return m
}

func (m uiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.view.Width = msg.Width - 2
		m.view.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = msg.Width - 6
		m.refresh()

	case flatReplyMsg:
		m.session.ApplyFlat(msg.text)
		m.session.FinishSend()
		m.refresh()

	case streamStartMsg:
		m.session.BeginBotMessage()
		m.fragments = msg.fragments
		m.refresh()
		cmds = append(cmds, waitFragment(m.fragments))

	case streamFragMsg:
		m.session.AppendFragment(msg.frag)
		m.refresh()
		cmds = append(cmds, waitFragment(m.fragments))

	case streamDoneMsg:
		m.session.FinishSend()
		m.fragments = nil
		m.refresh()

	case sendFailedMsg:
		m.session.FailSend(msg.err)
		m.refresh()

	case usageExhaustedMsg:
		m.session.ExhaustSend()
		m.refresh()

	case usageRejectedMsg:
		m.session.RejectSend()
		m.refresh()
	}

	if m.session.IsOpen() && !m.session.IsLoading() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey maps terminal keys onto widget transitions: enter opens the
// closed widget or sends, tab toggles minimize, esc closes, ctrl+c quits.
func (m *uiModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return nil, true

	case tea.KeyEsc:
		if m.session.IsOpen() {
			m.session.Close()
			m.refresh()
			return nil, false
		}
		return nil, true

	case tea.KeyTab:
		if m.session.IsMinimized() {
			m.session.Restore()
		} else {
			m.session.Minimize()
		}
		m.refresh()

	case tea.KeyEnter:
		if !m.session.IsOpen() {
			m.session.Open()
			m.refresh()
			return nil, false
		}
		history, ok := m.session.StartSend(m.input.Value())
		if !ok {
			return nil, false
		}
		m.input.Reset()
		m.refresh()
		return m.sendCmd(history), false
	}
	return nil, false
}

// sendCmd performs the network half of a send off the UI loop.
func (m *uiModel) sendCmd(history []models.Message) tea.Cmd {
	session := m.session
	cfg := session.Config()
	return func() tea.Msg {
		ctx := context.Background()

		if session.usage != nil {
			remaining, err := session.usage.RemainingCalls(ctx, cfg.APIKey)
			if err != nil {
				return usageRejectedMsg{}
			}
			if remaining <= 0 {
				return usageExhaustedMsg{}
			}
		}

		reply, err := session.transport.Send(ctx, models.ChatRequest{
			Messages:  history,
			ChatbotID: cfg.ChatbotID,
			APIKey:    cfg.APIKey,
		})
		if err != nil {
			return sendFailedMsg{err: err}
		}
		if reply.IsFlat {
			return flatReplyMsg{text: reply.Flat}
		}
		return streamStartMsg{fragments: reply.Fragments}
	}
}

func waitFragment(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		frag, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		return streamFragMsg{frag: frag}
	}
}

func (m *uiModel) refresh() {
	m.view.SetContent(m.renderMessages())
	m.view.GotoBottom()
}

func (m *uiModel) renderMessages() string {
	cfg := m.session.Config()
	var b strings.Builder

	for _, msg := range m.session.Messages() {
		avatar := cfg.ChatbotAvatar
		label := cfg.ChatbotName
		style := m.botText
		if msg.Sender == SenderUser {
			avatar = cfg.UserAvatar
			label = "You"
			style = m.userText
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", avatar, style.Bold(true).Render(label), m.muted.Render(msg.Timestamp.Format("15:04"))))
		b.WriteString(style.Render(msg.Text))
		b.WriteString("\n\n")
	}

	if m.session.IsTyping() {
		b.WriteString(fmt.Sprintf("%s %s\n", cfg.ChatbotAvatar, m.muted.Render("● ● ●")))
	}
	return b.String()
}

func (m uiModel) View() string {
	cfg := m.session.Config()

	if !m.session.IsOpen() {
		bubble := m.bubble.Render(cfg.ChatbotAvatar + "  " + cfg.ChatbotName)
		hint := m.muted.Render("enter to chat · esc to quit")
		return m.placeCorner(bubble + "\n" + hint)
	}

	status := "Online"
	if m.session.IsTyping() {
		status = "Typing..."
	}
	header := m.header.Width(m.width - 2).Render(fmt.Sprintf("%s %s — %s", cfg.ChatbotAvatar, cfg.ChatbotName, status))

	if m.session.IsMinimized() {
		return m.placeCorner(header + "\n" + m.muted.Render("tab to restore · esc to close"))
	}

	var footer string
	if alert := m.session.Alert(); alert != "" {
		footer = m.muted.Render("! " + alert)
	} else if cfg.ShowBranding {
		footer = m.muted.Render("Powered by SmartBotly")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.view.View(),
		m.input.View(),
		footer,
	)
	return m.frame.Render(body)
}

// placeCorner pins content to the configured widget corner.
func (m *uiModel) placeCorner(content string) string {
	v, h := lipgloss.Bottom, lipgloss.Right
	switch m.session.Config().Position {
	case PositionBottomLeft:
		h = lipgloss.Left
	case PositionTopRight:
		v = lipgloss.Top
	case PositionTopLeft:
		v, h = lipgloss.Top, lipgloss.Left
	}
	return lipgloss.Place(m.width, m.height, h, v, content)
}
