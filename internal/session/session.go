// Package session owns the per-conversation state: the session identity, the
// display history shown to the user, and the memoized model context sent to
// the language model.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// Session is one continuous conversation. It is created by a Manager and is
// only ever touched by the request processing of its own conversation; the
// mutex exists because the hosting HTTP layer may serve sessions from
// multiple goroutines.
type Session struct {
	// turnMu serializes whole conversation turns: one inbound message is
	// fully processed before the next is accepted for this session. Held
	// across the orchestrator's entire turn, unlike mu which only guards
	// individual field accesses.
	turnMu sync.Mutex

	mu sync.Mutex

	id         string
	anonUserID string

	history []Message

	// Memoized model context. ctxReady distinguishes "not yet built" from
	// "built and empty"; once ready, turns append here instead of rebuilding.
	ctxReady bool
	modelCtx []openai.ChatCompletionMessage
}

func newSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session identifier, minted once at creation and stable for
// the session's lifetime.
func (s *Session) ID() string {
	return s.id
}

// BeginTurn blocks until no other turn is in flight for this session. Every
// turn must be bracketed by BeginTurn/EndTurn; sessions share no state with
// each other, so turns of unrelated sessions never contend.
func (s *Session) BeginTurn() {
	s.turnMu.Lock()
}

// EndTurn releases the turn acquired by BeginTurn.
func (s *Session) EndTurn() {
	s.turnMu.Unlock()
}

// AnonymousUserID returns the opaque participant token, minting it on first
// call. The orchestrator only calls this at the first real exchange, so a
// session that is opened and abandoned leaves no user identity behind.
func (s *Session) AnonymousUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anonUserID == "" {
		s.anonUserID = "anon-" + uuid.NewString()[:8]
	}
	return s.anonUserID
}

// Empty reports whether no message has been appended yet, which is how the
// orchestrator decides to emit the greeting.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) == 0
}

// Append completes msg with the session id and a timestamp strictly greater
// than the previous message's, appends it to the display history and returns
// the stored copy.
func (s *Session) Append(msg Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.SessionID = s.id
	msg.Timestamp = time.Now()
	if n := len(s.history); n > 0 && !msg.Timestamp.After(s.history[n-1].Timestamp) {
		msg.Timestamp = s.history[n-1].Timestamp.Add(time.Nanosecond)
	}
	s.history = append(s.history, msg)
	return msg
}

// History returns a copy of the display history in chronological order.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// ModelContext returns the conversation context for the language model,
// building it from the display history on first call and memoizing it.
// Later turns extend the memoized context via ExtendModelContext rather than
// rebuilding from scratch.
func (s *Session) ModelContext() []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ctxReady {
		s.modelCtx = BuildModelContext(s.history)
		s.ctxReady = true
	}
	out := make([]openai.ChatCompletionMessage, len(s.modelCtx))
	copy(out, s.modelCtx)
	return out
}

// ExtendModelContext appends one exchange turn to the memoized context,
// building the context first if it has never been initialized.
func (s *Session) ExtendModelContext(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ctxReady {
		s.modelCtx = BuildModelContext(s.history)
		s.ctxReady = true
	}
	s.modelCtx = append(s.modelCtx, openai.ChatCompletionMessage{Role: role, Content: content})
}

// BuildModelContext derives the model context from a display history: user
// and assistant messages are kept, greetings are dropped, and senders are
// translated to the provider's role vocabulary. It is a pure function of its
// input, so rebuilding from the same history yields the same context.
//
// Emergency canned responses are NOT filtered out here; only greetings are.
// That mirrors the historical behavior and whether safety-script text should
// also be excluded is an open product question, so it is left as is.
func BuildModelContext(history []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		if m.IsGreeting {
			continue
		}
		switch m.Sender {
		case SenderUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case SenderAssistant:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
		}
	}
	return out
}
