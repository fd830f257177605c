package history

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a single chat message. The JSON names match the records already
// persisted by earlier clients.
type Message struct {
	ID                string    `json:"id" validate:"required"`
	Text              string    `json:"text"`
	Sender            Sender    `json:"sender" validate:"oneof=user bot"`
	Timestamp         time.Time `json:"timestamp" validate:"required"`
	FollowUpQuestions []string  `json:"followUpQuestions,omitempty"`
}

// Session is one conversation thread.
type Session struct {
	ID           string    `json:"id" validate:"required"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	Timestamp    time.Time `json:"timestamp" validate:"required"`
	MessageCount int       `json:"messageCount" validate:"gte=0"`
	Messages     []Message `json:"messages" validate:"dive"`
}

// NewID returns a unique, time-ordered identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewUserMessage builds a user message stamped at.
func NewUserMessage(text string, at time.Time) Message {
	return Message{ID: NewID(), Text: text, Sender: SenderUser, Timestamp: at}
}

// NewBotMessage builds a bot message stamped at, carrying optional follow-ups.
func NewBotMessage(text string, followUps []string, at time.Time) Message {
	m := Message{ID: NewID(), Text: text, Sender: SenderBot, Timestamp: at}
	if len(followUps) > 0 {
		m.FollowUpQuestions = slices.Clone(followUps)
	}
	return m
}

func (m Message) clone() Message {
	m.FollowUpQuestions = slices.Clone(m.FollowUpQuestions)
	return m
}

func (s Session) clone() Session {
	msgs := make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = m.clone()
	}
	s.Messages = msgs
	return s
}
