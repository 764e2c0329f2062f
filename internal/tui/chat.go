// Package tui is the terminal front end: a single chat page over the SDK,
// with pushed events bridged into the bubbletea update loop.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/present"
	"mentor_chat/internal/service"
)

// RefreshMsg is sent from SDK callbacks (push merges, snapshot seeds) into
// the update loop so the view re-renders off the reconciled state.
type RefreshMsg struct{}

type sendResultMsg struct {
	leftover string
	err      error
}

type openResultMsg struct {
	err error
}

type ChatPage struct {
	chat service.ChatService
	me   uuid.UUID

	viewport viewport.Model
	textbox  textarea.Model
	info     string

	meStyle      lipgloss.Style
	otherStyle   lipgloss.Style
	pendingStyle lipgloss.Style
}

func NewChatPage(chat service.ChatService, me uuid.UUID, sel domain.Selection) (ChatPage, tea.Cmd) {
	m := ChatPage{
		chat: chat,
		me:   me,
	}

	m.viewport = viewport.New(80, 14)

	m.textbox = textarea.New()
	m.textbox.Focus()
	m.textbox.Placeholder = "Send a message..."
	m.textbox.Prompt = "┃ "
	m.textbox.CharLimit = 1000
	m.textbox.ShowLineNumbers = false
	m.textbox.SetHeight(4)
	m.textbox.SetWidth(80)

	m.meStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8"))
	m.otherStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45f"))
	m.pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))

	open := func() tea.Msg {
		return openResultMsg{err: chat.OpenConversation(context.Background(), sel)}
	}
	return m, open
}

func (m ChatPage) Init() tea.Cmd {
	return textarea.Blink
}

func (m ChatPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 2)
	m.viewport, cmds[0] = m.viewport.Update(msg)
	m.textbox, cmds[1] = m.textbox.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.chat.CloseConversation(context.Background())
			return m, tea.Quit
		case "ctrl+s":
			content := strings.TrimSpace(m.textbox.Value())
			if content == "" {
				break
			}
			m.textbox.Reset()
			m.renderMessages()
			chat := m.chat
			return m, tea.Batch(append(cmds, func() tea.Msg {
				leftover, err := chat.Send(context.Background(), content)
				return sendResultMsg{leftover: leftover, err: err}
			})...)
		}
	case RefreshMsg:
		m.renderMessages()
	case openResultMsg:
		if msg.err != nil {
			m.info = fmt.Sprintf("failed to open conversation: %v", msg.err)
		}
		m.renderMessages()
	case sendResultMsg:
		if msg.err != nil {
			m.info = fmt.Sprintf("send failed: %v", msg.err)
			m.textbox.SetValue(msg.leftover)
		} else {
			m.info = ""
		}
		m.renderMessages()
	}

	return m, tea.Batch(cmds...)
}

func (m *ChatPage) renderMessages() {
	views := present.ProjectMessages(m.chat.Messages(), m.me, time.Now())

	var b strings.Builder
	for _, v := range views {
		style := m.otherStyle
		switch {
		case v.Pending:
			style = m.pendingStyle
		case v.Mine:
			style = m.meStyle
		}
		suffix := ""
		if v.Pending {
			suffix = " (sending...)"
		}
		b.WriteString(style.Render(fmt.Sprintf("@%s · %s%s", v.Sender, v.When, suffix)))
		b.WriteString("\n" + v.Content + "\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m ChatPage) View() string {
	var s string

	if ch, ok := m.chat.Active(); ok {
		s = fmt.Sprintf("Conversation: %s\n", ch.ConversationID)
	} else {
		s = "No conversation open\n"
	}
	s += "_________________________________\n"
	s += m.viewport.View() + "\n"
	s += "‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾\n"
	s += m.textbox.View() + "\n"
	s += "ctrl+s send · esc quit\n"

	if m.info != "" {
		s += fmt.Sprintf("Info: %s\n", m.info)
	}
	return s
}
