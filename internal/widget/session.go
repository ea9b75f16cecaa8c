package widget

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartbotly/smartbotly/internal/models"
)

// Sender identifies which side of the conversation authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of the widget's conversation history. A bot message
// grows in place while its reply streams in.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
}

// User-facing texts for the ways a send can go wrong.
const (
	errTextGeneric      = "I'm sorry, I'm having trouble connecting right now. Please try again later."
	errTextUnauthorized = "Authentication failed. Please check your API key."
	errTextRateLimited  = "I'm receiving too many requests right now. Please wait a moment and try again."
	errTextQuota        = "API quota exceeded. Please check your billing."

	exhaustedText = "You've used all of your available messages. Upgrade your plan to keep chatting!"
)

// UsageChecker gates sends for the metered widget variant.
type UsageChecker interface {
	RemainingCalls(ctx context.Context, apiKey string) (int, error)
}

// Transport delivers a chat request and hands back the reply, flat or
// streamed.
type Transport interface {
	Send(ctx context.Context, req models.ChatRequest) (*Reply, error)
}

// Session is the widget's state machine. It is not safe for concurrent use;
// drive it from a single goroutine (the UI loop) and keep network I/O in
// commands that report back through the transition methods.
type Session struct {
	cfg       Config
	transport Transport
	usage     UsageChecker

	isOpen      bool
	isMinimized bool
	messages    []Message
	inputValue  string
	isTyping    bool
	isLoading   bool
	alert       string

	// OnChange, when set, fires after every state mutation. The terminal
	// front end re-renders through bubbletea instead; this hook serves
	// headless embedders using Exchange.
	OnChange func()

	now    func() time.Time
	nextID func() string
}

// NewSession creates a widget session. usage may be nil for the unmetered
// variant. With AutoOpen set the session starts open with the greeting
// seeded.
func NewSession(cfg Config, transport Transport, usage UsageChecker) *Session {
	s := &Session{
		cfg:       cfg.withDefaults(),
		transport: transport,
		usage:     usage,
		now:       time.Now,
		nextID:    uuid.NewString,
	}
	if s.cfg.AutoOpen {
		s.Open()
	}
	return s
}

// Config returns the effective (default-filled) configuration.
func (s *Session) Config() Config { return s.cfg }

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []Message {
	return append([]Message(nil), s.messages...)
}

func (s *Session) IsOpen() bool      { return s.isOpen }
func (s *Session) IsMinimized() bool { return s.isMinimized }
func (s *Session) IsTyping() bool    { return s.isTyping }
func (s *Session) IsLoading() bool   { return s.isLoading }

// Input returns the pending input field value.
func (s *Session) Input() string { return s.inputValue }

// SetInput replaces the pending input field value.
func (s *Session) SetInput(v string) {
	s.inputValue = v
	s.notify()
}

// Alert returns the last alert-level error (a rejected API key), empty when
// none is pending.
func (s *Session) Alert() string { return s.alert }

// Open shows the chat window. The first time the window opens on an empty
// conversation, the greeting is seeded as a bot message.
func (s *Session) Open() {
	s.isOpen = true
	s.isMinimized = false
	if len(s.messages) == 0 {
		s.messages = append(s.messages, Message{
			ID:        "greeting",
			Text:      s.cfg.Greeting,
			Sender:    SenderBot,
			Timestamp: s.now(),
		})
	}
	s.notify()
}

// Close hides the window. History is retained, only hidden.
func (s *Session) Close() {
	s.isOpen = false
	s.notify()
}

// Minimize collapses the open window to its header.
func (s *Session) Minimize() {
	if s.isOpen {
		s.isMinimized = true
		s.notify()
	}
}

// Restore expands a minimized window.
func (s *Session) Restore() {
	if s.isOpen {
		s.isMinimized = false
		s.notify()
	}
}

// StartSend begins a send: it appends the user message, clears the input and
// raises the loading/typing flags, returning the full history in wire form.
// It returns false when text is blank or another send is in flight; a send
// attempted while busy is dropped, not queued.
func (s *Session) StartSend(text string) ([]models.Message, bool) {
	if strings.TrimSpace(text) == "" || s.isLoading {
		return nil, false
	}

	s.messages = append(s.messages, Message{
		ID:        s.nextID(),
		Text:      text,
		Sender:    SenderUser,
		Timestamp: s.now(),
	})
	s.inputValue = ""
	s.isLoading = true
	s.isTyping = true
	s.alert = ""
	s.notify()

	history := make([]models.Message, len(s.messages))
	for i, m := range s.messages {
		role := models.RoleAssistant
		if m.Sender == SenderUser {
			role = models.RoleUser
		}
		history[i] = models.Message{Role: role, Content: m.Text}
	}
	return history, true
}

// ApplyFlat appends the complete bot reply of a non-streamed response.
func (s *Session) ApplyFlat(text string) {
	s.appendBot(text)
}

// BeginBotMessage appends the empty bot message a streamed reply will grow
// into.
func (s *Session) BeginBotMessage() {
	s.appendBot("")
}

// AppendFragment grows the in-flight bot message by one stream fragment.
func (s *Session) AppendFragment(frag string) {
	if n := len(s.messages); n > 0 && s.messages[n-1].Sender == SenderBot {
		s.messages[n-1].Text += frag
		s.notify()
	}
}

// FinishSend lowers the loading/typing flags. It runs on every exit path of a
// send, successful or not.
func (s *Session) FinishSend() {
	s.isLoading = false
	s.isTyping = false
	s.notify()
}

// FailSend appends exactly one bot message describing the failure and ends
// the send. The text is chosen from the HTTP status carried by the error;
// anything unclassified reads as a connectivity problem.
func (s *Session) FailSend(err error) {
	s.appendBot(failureText(err))
	s.FinishSend()
}

// RejectSend ends a send whose API key was rejected by the usage checker. No
// bot message is appended; the rejection is surfaced as an alert.
func (s *Session) RejectSend() {
	s.alert = "Your API key was rejected. Please check your SmartBotly configuration."
	s.FinishSend()
}

// ExhaustSend ends a send short-circuited by an empty call allowance,
// replacing the model reply with the upgrade notice.
func (s *Session) ExhaustSend() {
	s.appendBot(exhaustedText)
	s.FinishSend()
}

// Exchange runs one full send cycle synchronously: the usage gate when
// metered, the request, and the incremental application of the reply. It
// returns false when the send was dropped by the busy/blank guard.
func (s *Session) Exchange(ctx context.Context, text string) bool {
	history, ok := s.StartSend(text)
	if !ok {
		return false
	}

	if s.usage != nil {
		remaining, err := s.usage.RemainingCalls(ctx, s.cfg.APIKey)
		if err != nil {
			s.RejectSend()
			return true
		}
		if remaining <= 0 {
			s.ExhaustSend()
			return true
		}
	}

	reply, err := s.transport.Send(ctx, models.ChatRequest{
		Messages:  history,
		ChatbotID: s.cfg.ChatbotID,
		APIKey:    s.cfg.APIKey,
	})
	if err != nil {
		s.FailSend(err)
		return true
	}

	if reply.IsFlat {
		s.ApplyFlat(reply.Flat)
		s.FinishSend()
		return true
	}

	s.BeginBotMessage()
	for frag := range reply.Fragments {
		s.AppendFragment(frag)
	}
	s.FinishSend()
	return true
}

func (s *Session) appendBot(text string) {
	s.messages = append(s.messages, Message{
		ID:        s.nextID(),
		Text:      text,
		Sender:    SenderBot,
		Timestamp: s.now(),
	})
	s.notify()
}

func (s *Session) notify() {
	if s.OnChange != nil {
		s.OnChange()
	}
}

func failureText(err error) string {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return errTextGeneric
	}
	switch statusErr.Code {
	case http.StatusUnauthorized:
		return errTextUnauthorized
	case http.StatusTooManyRequests:
		return errTextRateLimited
	case http.StatusPaymentRequired:
		return errTextQuota
	default:
		return errTextGeneric
	}
}
