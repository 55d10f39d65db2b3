// Package session holds the conversation state of one tutoring session and
// its optional SQLite persistence.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gitdojo/gitdojo/pkg/chat"
)

// Session is the ordered transcript of one tutoring conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	mu       sync.RWMutex
	messages []chat.Message
}

func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Session) AddMessage(msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)

	if s.Title == "" && msg.Role == chat.MessageRoleUser {
		s.Title = titleFrom(msg.Content)
	}
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear drops the transcript, keeping the session identity.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

func (s *Session) setMessages(msgs []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = msgs
}

// titleFrom derives a session title from the first user message: first line,
// capped at 50 characters.
func titleFrom(content string) string {
	title := content
	if idx := strings.Index(title, "\n"); idx > 0 && idx < 50 {
		title = title[:idx]
	} else if len(title) > 50 {
		title = title[:47] + "..."
	}
	return title
}
