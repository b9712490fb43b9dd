package view

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/sentichat/internal/analysis/sentiment"
	"github.com/zhouzirui/sentichat/internal/chart"
	"github.com/zhouzirui/sentichat/internal/format"
	"github.com/zhouzirui/sentichat/internal/model/chat"
)

const writeWait = 10 * time.Second

type outgoingMessage struct {
	Type      string `json:"type"`
	ViewID    string `json:"viewId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// connWriter serializes writes to one websocket connection.
type connWriter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	viewID string
	logger zerolog.Logger
}

func newConnWriter(conn *websocket.Conn, logger zerolog.Logger) *connWriter {
	return &connWriter{conn: conn, logger: logger}
}

func (w *connWriter) setViewID(id string) {
	w.mu.Lock()
	w.viewID = id
	w.mu.Unlock()
}

func (w *connWriter) send(msgType string, data any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := outgoingMessage{
		Type:      msgType,
		ViewID:    w.viewID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(msg); err != nil {
		w.logger.Debug().Err(err).Str("type", msgType).Msg("write failed")
	}
}

func (w *connWriter) sendError(message string) {
	w.send("error", errorPayload{Message: format.EscapeHTML(message), Dismissible: true})
}

func (w *connWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

type messagePayload struct {
	ID             int                `json:"id"`
	Sender         chat.Sender        `json:"sender"`
	Text           string             `json:"text"`
	Sentiment      sentiment.Category `json:"sentiment,omitempty"`
	SentimentLabel string             `json:"sentimentLabel,omitempty"`
	SentimentScore float64            `json:"sentimentScore,omitempty"`
	Time           string             `json:"time"`
}

type errorPayload struct {
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

type typingPayload struct {
	Active bool `json:"active"`
}

type composerPayload struct {
	Enabled bool `json:"enabled"`
	Focus   bool `json:"focus,omitempty"`
}

type chartPayload struct {
	Surface    string      `json:"surface"`
	InstanceID string      `json:"instanceId"`
	Spec       *chart.Spec `json:"spec,omitempty"`
}

// wsView renders conversation events as websocket messages. Text is
// escaped here since the browser inserts it as markup.
type wsView struct {
	out *connWriter
}

func (v wsView) AppendMessage(msg chat.Message) {
	payload := messagePayload{
		ID:     msg.ID,
		Sender: msg.Sender,
		Text:   format.EscapeHTML(msg.Text),
		Time:   format.Timestamp(msg.Timestamp),
	}
	if msg.IsBot() {
		payload.Sentiment = msg.Sentiment
		payload.SentimentLabel = msg.Sentiment.Title()
		payload.SentimentScore = msg.SentimentScore
	}
	v.out.send("message", payload)
}

func (v wsView) ShowTyping() { v.out.send("typing", typingPayload{Active: true}) }

func (v wsView) HideTyping() { v.out.send("typing", typingPayload{Active: false}) }

func (v wsView) ShowError(message string) { v.out.sendError(message) }

func (v wsView) SetComposerEnabled(enabled bool) {
	v.out.send("composer", composerPayload{Enabled: enabled})
}

func (v wsView) FocusComposer() {
	v.out.send("composer", composerPayload{Enabled: true, Focus: true})
}

// wsRenderer hands chart specs to the browser, which owns the actual
// drawing. Each bind gets a fresh instance id.
type wsRenderer struct {
	out *connWriter
}

func (r wsRenderer) Bind(surface string, spec chart.Spec) (chart.Instance, error) {
	inst := &wsInstance{out: r.out, surface: surface, id: uuid.NewString()}
	r.out.send("chart_bound", chartPayload{Surface: surface, InstanceID: inst.id, Spec: &spec})
	return inst, nil
}

type wsInstance struct {
	out     *connWriter
	surface string
	id      string
}

func (i *wsInstance) Destroy() error {
	i.out.send("chart_destroyed", chartPayload{Surface: i.surface, InstanceID: i.id})
	return nil
}
