package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/zhouzirui/sentichat/internal/model/chat"
)

var (
	// ErrEmptyMessage is returned when the composer text is blank.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight is returned when a send is attempted while another is pending.
	ErrSendInFlight = errors.New("a message is already being sent")
)

// Phase is the lifecycle position of the latest exchange.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseResolved
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseResolved:
		return "resolved"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the ordered record of one view's conversation. Messages are
// append-only; only Controller mutates it.
type State struct {
	mu       sync.RWMutex
	messages []chat.Message
	phase    Phase
}

// NewState returns an empty conversation in PhaseIdle.
func NewState() *State {
	return &State{messages: make([]chat.Message, 0, 32)}
}

// Messages returns a copy of the conversation in order.
func (s *State) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Message(nil), s.messages...)
}

// Len is the number of messages.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Pending reports whether a send is in flight.
func (s *State) Pending() bool {
	return s.Phase() == PhaseSending
}

// beginSend appends the user message and enters PhaseSending in one step.
func (s *State) beginSend(text string, at time.Time) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSending {
		return chat.Message{}, ErrSendInFlight
	}
	msg := s.appendLocked(chat.Message{Sender: chat.SenderUser, Text: text, Timestamp: at})
	s.phase = PhaseSending
	return msg, nil
}

// resolve appends the bot reply and leaves PhaseSending.
func (s *State) resolve(reply chat.Reply, at time.Time) (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSending {
		return chat.Message{}, false
	}
	ts := reply.Timestamp
	if ts.IsZero() {
		ts = at
	}
	msg := s.appendLocked(chat.Message{
		Sender:         chat.SenderBot,
		Text:           reply.Response,
		Sentiment:      reply.Sentiment,
		SentimentScore: reply.SentimentScore,
		Timestamp:      ts,
	})
	s.phase = PhaseResolved
	return msg, true
}

// fail leaves PhaseSending without appending anything.
func (s *State) fail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSending {
		return false
	}
	s.phase = PhaseFailed
	return true
}

// seed appends history exchanges into an untouched conversation. It refuses
// once any message exists or a send is pending so history never lands after
// live messages.
func (s *State) seed(exchanges []chat.Exchange) ([]chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSending || len(s.messages) > 0 {
		return nil, false
	}

	out := make([]chat.Message, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		out = append(out, s.appendLocked(chat.Message{
			Sender:    chat.SenderUser,
			Text:      ex.Message,
			Timestamp: ex.Timestamp,
		}))
		ts := ex.Reply.Timestamp
		if ts.IsZero() {
			ts = ex.Timestamp
		}
		out = append(out, s.appendLocked(chat.Message{
			Sender:         chat.SenderBot,
			Text:           ex.Reply.Response,
			Sentiment:      ex.Reply.Sentiment,
			SentimentScore: ex.Reply.SentimentScore,
			Timestamp:      ts,
		}))
	}
	return out, true
}

func (s *State) appendLocked(msg chat.Message) chat.Message {
	msg.ID = len(s.messages) + 1
	s.messages = append(s.messages, msg)
	return msg
}
