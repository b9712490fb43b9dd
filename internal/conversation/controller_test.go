package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/model/chat"
	"github.com/zhouzirui/sentichat/internal/service/classifier"
)

type recordingView struct {
	mu        sync.Mutex
	events    []string
	messages  []chat.Message
	errors    []string
	typing    int
	maxTyping int
	enabled   bool
	focused   int
}

func newRecordingView() *recordingView {
	return &recordingView{enabled: true}
}

func (v *recordingView) AppendMessage(msg chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, msg)
	v.events = append(v.events, "message:"+string(msg.Sender))
}

func (v *recordingView) ShowTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing++
	if v.typing > v.maxTyping {
		v.maxTyping = v.typing
	}
	v.events = append(v.events, "typing:on")
}

func (v *recordingView) HideTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing--
	v.events = append(v.events, "typing:off")
}

func (v *recordingView) ShowError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, message)
	v.events = append(v.events, "error")
}

func (v *recordingView) SetComposerEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = enabled
	v.events = append(v.events, fmt.Sprintf("composer:%t", enabled))
}

func (v *recordingView) FocusComposer() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focused++
	v.events = append(v.events, "focus")
}

type fakeClassifier struct {
	mu        sync.Mutex
	calls     int
	reply     chat.Reply
	err       error
	panicWith any
	block     chan struct{}
	started   chan struct{}

	history      []chat.Exchange
	historyErr   error
	historyCalls int
}

func (f *fakeClassifier) Chat(ctx context.Context, text string) (chat.Reply, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.reply, f.err
}

func (f *fakeClassifier) History(ctx context.Context) ([]chat.Exchange, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	return f.history, f.historyErr
}

func newTestController(cl Classifier, view View) *Controller {
	return NewController(cl, view, Options{Logger: zerolog.Nop()})
}

func TestSendSuccess(t *testing.T) {
	cl := &fakeClassifier{reply: chat.Reply{Response: "Hi!", Sentiment: sentiment.Positive, SentimentScore: 0.9}}
	view := newRecordingView()
	c := newTestController(cl, view)

	require.NoError(t, c.Send(context.Background(), "hello"))

	msgs := c.State().Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, chat.Message{ID: 1, Sender: chat.SenderUser, Text: "hello", Timestamp: msgs[0].Timestamp}, msgs[0])
	require.Equal(t, chat.SenderBot, msgs[1].Sender)
	require.Equal(t, "Hi!", msgs[1].Text)
	require.Equal(t, sentiment.Positive, msgs[1].Sentiment)
	require.Equal(t, 2, msgs[1].ID)
	require.False(t, c.State().Pending())
	require.Equal(t, PhaseResolved, c.State().Phase())

	require.Equal(t, []string{
		"message:user", "composer:false", "typing:on",
		"typing:off", "message:bot",
		"composer:true", "focus",
	}, view.events)
	require.Zero(t, view.typing)
	require.True(t, view.enabled)
}

func TestSendNetworkFailure(t *testing.T) {
	cl := &fakeClassifier{err: &classifier.TransportError{Op: "send message", Err: errors.New("connection refused")}}
	view := newRecordingView()
	c := newTestController(cl, view)

	err := c.Send(context.Background(), "x")
	require.True(t, classifier.IsTransport(err))

	msgs := c.State().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "x", msgs[0].Text)
	require.Equal(t, []string{TransportErrorText}, view.errors)
	require.False(t, c.State().Pending())
	require.Equal(t, PhaseFailed, c.State().Phase())
	require.Zero(t, view.typing)
	require.True(t, view.enabled)
	require.Equal(t, 1, view.focused)
}

func TestSendApplicationErrorShownVerbatim(t *testing.T) {
	cl := &fakeClassifier{err: &classifier.ApplicationError{Op: "send message", Message: "Message cannot be empty"}}
	view := newRecordingView()
	c := newTestController(cl, view)

	require.Error(t, c.Send(context.Background(), "hi"))
	require.Equal(t, []string{"Message cannot be empty"}, view.errors)

	cl.err = &classifier.ApplicationError{Op: "send message"}
	require.Error(t, c.Send(context.Background(), "hi again"))
	require.Equal(t, GenericErrorText, view.errors[1])
	require.Equal(t, 2, c.State().Len())
}

func TestSendRecoversClassifierPanic(t *testing.T) {
	cl := &fakeClassifier{panicWith: "boom"}
	view := newRecordingView()
	c := newTestController(cl, view)

	require.Error(t, c.Send(context.Background(), "hello"))
	require.False(t, c.State().Pending())
	require.Equal(t, []string{GenericErrorText}, view.errors)
	require.Zero(t, view.typing)
	require.True(t, view.enabled)
}

func TestSendBlankIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		cl := &fakeClassifier{}
		view := newRecordingView()
		c := newTestController(cl, view)

		require.ErrorIs(t, c.Send(context.Background(), text), ErrEmptyMessage)
		require.Zero(t, cl.calls)
		require.Zero(t, c.State().Len())
		require.Empty(t, view.events)
		require.Equal(t, PhaseIdle, c.State().Phase())
	}
}

func TestSendTrimsText(t *testing.T) {
	cl := &fakeClassifier{reply: chat.Reply{Response: "ok", Sentiment: sentiment.Neutral}}
	c := newTestController(cl, newRecordingView())

	require.NoError(t, c.Send(context.Background(), "  hello  "))
	require.Equal(t, "hello", c.State().Messages()[0].Text)
}

func TestConcurrentSendRejected(t *testing.T) {
	cl := &fakeClassifier{
		reply:   chat.Reply{Response: "done", Sentiment: sentiment.Neutral},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	view := newRecordingView()
	c := newTestController(cl, view)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()

	select {
	case <-cl.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first send never reached the classifier")
	}
	require.True(t, c.State().Pending())

	require.ErrorIs(t, c.Send(context.Background(), "second"), ErrSendInFlight)
	require.Equal(t, 1, c.State().Len())

	close(cl.block)
	require.NoError(t, <-done)

	require.Equal(t, 1, cl.calls)
	require.Equal(t, 1, view.maxTyping)
	require.Len(t, c.State().Messages(), 2)
	require.False(t, c.State().Pending())
}

func TestExactlyOneOutcomePerSend(t *testing.T) {
	cl := &fakeClassifier{reply: chat.Reply{Response: "ok", Sentiment: sentiment.Neutral}}
	view := newRecordingView()
	c := newTestController(cl, view)

	for i := 0; i < 6; i++ {
		if i%2 == 0 {
			cl.err = nil
		} else {
			cl.err = &classifier.TransportError{Op: "send message", StatusCode: 502}
		}
		_ = c.Send(context.Background(), fmt.Sprintf("msg %d", i))
		require.False(t, c.State().Pending())
	}

	users, bots := 0, 0
	for _, m := range c.State().Messages() {
		if m.IsBot() {
			bots++
		} else {
			users++
		}
	}
	require.Equal(t, 6, users)
	require.Equal(t, 3, bots)
	require.Len(t, view.errors, 3)
}

func exchanges(n int) []chat.Exchange {
	out := make([]chat.Exchange, n)
	for i := range out {
		out[i] = chat.Exchange{
			ID:      i + 1,
			Message: fmt.Sprintf("q%d", i+1),
			Reply:   chat.Reply{Response: fmt.Sprintf("a%d", i+1), Sentiment: sentiment.Neutral},
		}
	}
	return out
}

func TestLoadHistoryRendersLastTenInOrder(t *testing.T) {
	cl := &fakeClassifier{history: exchanges(14)}
	view := newRecordingView()
	c := newTestController(cl, view)

	require.Equal(t, 10, c.LoadHistory(context.Background()))

	msgs := c.State().Messages()
	require.Len(t, msgs, 20)
	for i := 0; i < 10; i++ {
		require.Equal(t, chat.SenderUser, msgs[2*i].Sender)
		require.Equal(t, fmt.Sprintf("q%d", i+5), msgs[2*i].Text)
		require.Equal(t, chat.SenderBot, msgs[2*i+1].Sender)
		require.Equal(t, fmt.Sprintf("a%d", i+5), msgs[2*i+1].Text)
	}
	require.Len(t, view.messages, 20)
}

func TestLoadHistoryOnce(t *testing.T) {
	cl := &fakeClassifier{history: exchanges(3)}
	c := newTestController(cl, newRecordingView())

	require.Equal(t, 3, c.LoadHistory(context.Background()))
	require.Zero(t, c.LoadHistory(context.Background()))
	require.Equal(t, 1, cl.historyCalls)
	require.Equal(t, 6, c.State().Len())
}

func TestLoadHistoryFailureIsSilent(t *testing.T) {
	cl := &fakeClassifier{historyErr: &classifier.TransportError{Op: "load history", StatusCode: 500}}
	view := newRecordingView()
	c := newTestController(cl, view)

	require.Zero(t, c.LoadHistory(context.Background()))
	require.Empty(t, view.errors)
	require.Zero(t, c.State().Len())

	cl.reply = chat.Reply{Response: "ok", Sentiment: sentiment.Neutral}
	require.NoError(t, c.Send(context.Background(), "still works"))
}

func TestLoadHistoryAfterSendIsSkipped(t *testing.T) {
	cl := &fakeClassifier{
		reply:   chat.Reply{Response: "ok", Sentiment: sentiment.Neutral},
		history: exchanges(2),
	}
	c := newTestController(cl, newRecordingView())

	require.NoError(t, c.Send(context.Background(), "hello"))
	require.Zero(t, c.LoadHistory(context.Background()))
	require.Equal(t, 2, c.State().Len())
}

func TestErrorText(t *testing.T) {
	require.Equal(t, TransportErrorText, ErrorText(&classifier.TransportError{Op: "x", StatusCode: 503}))
	require.Equal(t, TransportErrorText, ErrorText(context.DeadlineExceeded))
	require.Equal(t, "nope", ErrorText(&classifier.ApplicationError{Op: "x", Message: "nope"}))
	require.Equal(t, GenericErrorText, ErrorText(errors.New("weird")))
}
