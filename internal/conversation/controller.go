// Package conversation runs the send/reply lifecycle of a chat view.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/zhouzirui/sentichat/internal/model/chat"
	"github.com/zhouzirui/sentichat/internal/service/classifier"
)

// DefaultHistoryLimit is the number of past exchanges rendered on load.
const DefaultHistoryLimit = 10

// Texts shown when a send fails.
const (
	TransportErrorText = "Sorry, I couldn't reach the server. Please try again."
	GenericErrorText   = "Sorry, I encountered an error. Please try again."
)

// Classifier is the remote chatbot/sentiment service.
type Classifier interface {
	Chat(ctx context.Context, text string) (chat.Reply, error)
	History(ctx context.Context) ([]chat.Exchange, error)
}

// View is the host UI of one conversation.
type View interface {
	AppendMessage(msg chat.Message)
	ShowTyping()
	HideTyping()
	ShowError(message string)
	SetComposerEnabled(enabled bool)
	FocusComposer()
}

// Options tunes a Controller.
type Options struct {
	HistoryLimit int
	Logger       zerolog.Logger
	Clock        func() time.Time
}

// Controller orders sends, replies and history for one view.
type Controller struct {
	state        *State
	classifier   Classifier
	view         View
	historyLimit int
	logger       zerolog.Logger
	now          func() time.Time

	// ui serializes state mutations with the view updates that announce them.
	ui sync.Mutex

	history       singleflight.Group
	historyMu     sync.Mutex
	historyLoaded bool
}

// NewController wires a fresh conversation to classifier and view.
func NewController(cl Classifier, view View, opts Options) *Controller {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		state:        NewState(),
		classifier:   cl,
		view:         view,
		historyLimit: limit,
		logger:       opts.Logger.With().Str("component", "conversation").Logger(),
		now:          clock,
	}
}

// State exposes the conversation for reading.
func (c *Controller) State() *State {
	return c.state
}

// Send posts text to the classifier and records the outcome. Blank text
// returns ErrEmptyMessage and a send while another is pending returns
// ErrSendInFlight; neither touches the conversation. Any other error has
// already been shown to the user.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	userMsg, err := c.begin(text)
	if err != nil {
		c.logger.Debug().Msg("send rejected, exchange in flight")
		return err
	}

	settled := false
	defer func() {
		c.ui.Lock()
		defer c.ui.Unlock()
		if !settled && c.state.fail() {
			c.view.HideTyping()
		}
		c.view.SetComposerEnabled(true)
		c.view.FocusComposer()
	}()

	reply, err := c.classify(ctx, text)

	c.ui.Lock()
	defer c.ui.Unlock()
	if err != nil {
		c.state.fail()
		settled = true
		c.view.HideTyping()
		c.view.ShowError(ErrorText(err))
		c.logger.Warn().Err(err).Int("message_id", userMsg.ID).Msg("send failed")
		return err
	}

	botMsg, _ := c.state.resolve(reply, c.now())
	settled = true
	c.view.HideTyping()
	c.view.AppendMessage(botMsg)
	c.logger.Debug().Int("message_id", botMsg.ID).Str("sentiment", string(botMsg.Sentiment)).Msg("reply received")
	return nil
}

func (c *Controller) begin(text string) (chat.Message, error) {
	c.ui.Lock()
	defer c.ui.Unlock()
	msg, err := c.state.beginSend(text, c.now())
	if err != nil {
		return chat.Message{}, err
	}
	c.view.AppendMessage(msg)
	c.view.SetComposerEnabled(false)
	c.view.ShowTyping()
	return msg, nil
}

func (c *Controller) classify(ctx context.Context, text string) (reply chat.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return c.classifier.Chat(ctx, text)
}

// LoadHistory renders the most recent exchanges once per view and returns
// how many were rendered. Failures are logged and leave the view usable.
// Concurrent calls share one fetch.
func (c *Controller) LoadHistory(ctx context.Context) int {
	c.historyMu.Lock()
	loaded := c.historyLoaded
	c.historyMu.Unlock()
	if loaded {
		return 0
	}

	v, err, _ := c.history.Do("history", func() (any, error) {
		exchanges, err := c.classifier.History(ctx)
		if err != nil {
			return 0, err
		}
		if len(exchanges) > c.historyLimit {
			exchanges = exchanges[len(exchanges)-c.historyLimit:]
		}

		c.ui.Lock()
		defer c.ui.Unlock()

		c.historyMu.Lock()
		if c.historyLoaded {
			c.historyMu.Unlock()
			return 0, nil
		}
		c.historyLoaded = true
		c.historyMu.Unlock()

		msgs, ok := c.state.seed(exchanges)
		if !ok {
			c.logger.Info().Msg("history skipped, conversation already started")
			return 0, nil
		}
		for _, msg := range msgs {
			c.view.AppendMessage(msg)
		}
		return len(exchanges), nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("load history failed")
		return 0
	}
	n, _ := v.(int)
	return n
}

// ErrorText maps a send failure to the text shown in the view.
func ErrorText(err error) string {
	if appErr, ok := classifier.AsApplication(err); ok {
		if msg := strings.TrimSpace(appErr.Message); msg != "" {
			return msg
		}
		return GenericErrorText
	}
	if classifier.IsTransport(err) {
		return TransportErrorText
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return TransportErrorText
	}
	return GenericErrorText
}
