package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Notification is one message captured by InMemorySender.
type Notification struct {
	UserID  uuid.UUID
	Channel string
	Subject string
	Body    string
}

// InMemorySender records notifications. Err, when set, is returned by
// every Send and nothing is recorded.
type InMemorySender struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func NewInMemorySender() *InMemorySender {
	return &InMemorySender{}
}

func (s *InMemorySender) Send(_ context.Context, userID uuid.UUID, channel, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, Notification{UserID: userID, Channel: channel, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of everything recorded so far.
func (s *InMemorySender) Sent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *InMemorySender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
