package chat

import (
	"time"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of a conversation. ID is its 1-based position.
// Sentiment and SentimentScore are only set for bot messages.
type Message struct {
	ID             int                `json:"id"`
	Sender         Sender             `json:"sender"`
	Text           string             `json:"text"`
	Sentiment      sentiment.Category `json:"sentiment,omitempty"`
	SentimentScore float64            `json:"sentimentScore,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// IsBot reports whether the message was produced by the classifier.
func (m Message) IsBot() bool {
	return m.Sender == SenderBot
}

// Reply is a classified answer to one user message.
type Reply struct {
	Response       string
	Sentiment      sentiment.Category
	SentimentScore float64
	Timestamp      time.Time
}

// Exchange is a stored user message paired with its classified reply.
type Exchange struct {
	ID        int
	Message   string
	Reply     Reply
	Timestamp time.Time
}
