package view

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/model/analytics"
	"github.com/zhouzirui/sentichat/internal/model/chat"
	viewservice "github.com/zhouzirui/sentichat/internal/service/view"
)

type fakeBackend struct {
	mu      sync.Mutex
	chatErr error
	history []chat.Exchange
	dist    analytics.RawDistribution
}

func (f *fakeBackend) Chat(_ context.Context, text string) (chat.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return chat.Reply{}, f.chatErr
	}
	return chat.Reply{Response: "Hi <b>" + text + "</b>", Sentiment: sentiment.Positive, SentimentScore: 0.8}, nil
}

func (f *fakeBackend) History(context.Context) ([]chat.Exchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeBackend) Distribution(context.Context) (analytics.RawDistribution, error) {
	return f.dist, nil
}

func (f *fakeBackend) Timeline(context.Context) (analytics.RawTimeline, error) {
	return analytics.RawTimeline{
		Dates:    []string{"2024-03-01", "2024-03-02"},
		Positive: []int{1, 2},
		Negative: []int{0, 1},
		Neutral:  []int{3, 0},
	}, nil
}

type received struct {
	Type   string          `json:"type"`
	ViewID string          `json:"viewId"`
	Data   json.RawMessage `json:"data"`
}

func startServer(t *testing.T, backend Backend, opts Options) (*viewservice.Registry, *websocket.Conn) {
	t.Helper()

	registry := viewservice.NewRegistry()
	handler := NewWebSocketHandler(registry, backend, opts, zerolog.Nop())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/views/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return registry, conn
}

func write(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: msgType, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readN(t *testing.T, conn *websocket.Conn, n int) []received {
	t.Helper()
	out := make([]received, 0, n)
	for len(out) < n {
		out = append(out, read(t, conn))
	}
	return out
}

func types(msgs []received) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func TestChatViewSendRoundTrip(t *testing.T) {
	registry, conn := startServer(t, &fakeBackend{}, Options{})

	write(t, conn, "mount", mountMessage{Page: chat.PageChat})
	mounted := read(t, conn)
	require.Equal(t, "mounted", mounted.Type)
	require.NotEmpty(t, mounted.ViewID)
	require.Equal(t, 1, registry.Count())

	write(t, conn, "send", sendMessage{Text: "  hello  "})
	msgs := readN(t, conn, 7)
	require.Equal(t, []string{"message", "composer", "typing", "typing", "message", "composer", "composer"}, types(msgs))

	var user, bot messagePayload
	require.NoError(t, json.Unmarshal(msgs[0].Data, &user))
	require.NoError(t, json.Unmarshal(msgs[4].Data, &bot))
	require.Equal(t, chat.SenderUser, user.Sender)
	require.Equal(t, "hello", user.Text)
	require.Equal(t, 1, user.ID)
	require.Empty(t, user.Sentiment)
	require.Equal(t, chat.SenderBot, bot.Sender)
	require.Equal(t, "Hi &lt;b&gt;hello&lt;/b&gt;", bot.Text)
	require.Equal(t, sentiment.Positive, bot.Sentiment)
	require.Equal(t, "Positive", bot.SentimentLabel)

	var typing typingPayload
	require.NoError(t, json.Unmarshal(msgs[2].Data, &typing))
	require.True(t, typing.Active)
	require.NoError(t, json.Unmarshal(msgs[3].Data, &typing))
	require.False(t, typing.Active)

	var focus composerPayload
	require.NoError(t, json.Unmarshal(msgs[6].Data, &focus))
	require.True(t, focus.Enabled)
	require.True(t, focus.Focus)
}

func TestChatViewTransportFailureShowsError(t *testing.T) {
	_, conn := startServer(t, &fakeBackend{chatErr: errors.New("connection refused")}, Options{})

	write(t, conn, "mount", mountMessage{Page: chat.PageChat})
	require.Equal(t, "mounted", read(t, conn).Type)

	write(t, conn, "send", sendMessage{Text: "x"})
	msgs := readN(t, conn, 7)
	require.Equal(t, []string{"message", "composer", "typing", "typing", "error", "composer", "composer"}, types(msgs))

	var payload errorPayload
	require.NoError(t, json.Unmarshal(msgs[4].Data, &payload))
	require.True(t, payload.Dismissible)
	require.NotEmpty(t, payload.Message)
}

func TestChatViewLoadsHistoryOnMount(t *testing.T) {
	backend := &fakeBackend{history: []chat.Exchange{
		{ID: 1, Message: "hi", Reply: chat.Reply{Response: "hello", Sentiment: sentiment.Neutral}},
	}}
	_, conn := startServer(t, backend, Options{})

	write(t, conn, "mount", mountMessage{Page: chat.PageChat})
	msgs := readN(t, conn, 3)
	require.Equal(t, []string{"mounted", "message", "message"}, types(msgs))

	var first messagePayload
	require.NoError(t, json.Unmarshal(msgs[1].Data, &first))
	require.Equal(t, "hi", first.Text)
}

func TestDashboardViewBindsChartsAndSummary(t *testing.T) {
	backend := &fakeBackend{dist: analytics.RawDistribution{
		Labels: []string{"Positive", "Negative", "Neutral"},
		Values: []int{6, 3, 1},
	}}
	_, conn := startServer(t, backend, Options{})

	write(t, conn, "mount", mountMessage{Page: chat.PageDashboard})
	require.Equal(t, "mounted", read(t, conn).Type)

	msgs := readN(t, conn, 3)
	bound := map[string]chartPayload{}
	var sawSummary bool
	for _, m := range msgs {
		switch m.Type {
		case "chart_bound":
			var p chartPayload
			require.NoError(t, json.Unmarshal(m.Data, &p))
			bound[p.Surface] = p
		case "summary":
			sawSummary = true
		default:
			t.Fatalf("unexpected message %q", m.Type)
		}
	}
	require.True(t, sawSummary)
	require.Len(t, bound, 2)
	require.Equal(t, []string{"Positive: 60.0%", "Negative: 30.0%", "Neutral: 10.0%"}, bound["sentimentChart"].Spec.Legend)

	write(t, conn, "refresh_charts", nil)
	msgs = readN(t, conn, 5)
	counts := map[string]int{}
	for _, m := range msgs {
		counts[m.Type]++
	}
	require.Equal(t, map[string]int{"chart_destroyed": 2, "chart_bound": 2, "summary": 1}, counts)
}

func TestMessageBeforeMountIsRejected(t *testing.T) {
	_, conn := startServer(t, &fakeBackend{}, Options{})

	write(t, conn, "send", sendMessage{Text: "hello"})
	msg := read(t, conn)
	require.Equal(t, "error", msg.Type)
}

func TestCloseUnmountsView(t *testing.T) {
	registry, conn := startServer(t, &fakeBackend{}, Options{})

	write(t, conn, "mount", mountMessage{Page: chat.PageChat})
	require.Equal(t, "mounted", read(t, conn).Type)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
