// Package view serves browser views over a websocket. Each connection mounts
// one view instance that owns its own conversation and chart registries.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/sentichat/internal/chart"
	"github.com/zhouzirui/sentichat/internal/conversation"
	"github.com/zhouzirui/sentichat/internal/dashboard"
	"github.com/zhouzirui/sentichat/internal/model/chat"
	viewservice "github.com/zhouzirui/sentichat/internal/service/view"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Backend is the classification service as seen by a view.
type Backend interface {
	conversation.Classifier
	dashboard.Source
}

// Options tunes the views served by a Handler.
type Options struct {
	HistoryLimit     int
	RefreshInterval  time.Duration
	DistributionKind chart.Kind
	Theme            chart.Theme
}

// WebSocketHandler mounts view instances over websocket connections.
type WebSocketHandler struct {
	registry *viewservice.Registry
	backend  Backend
	opts     Options
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the view handler.
func NewWebSocketHandler(registry *viewservice.Registry, backend Backend, opts Options, logger zerolog.Logger) *WebSocketHandler {
	if opts.DistributionKind == "" {
		opts.DistributionKind = chart.KindDoughnut
	}
	if opts.Theme.Colors == nil {
		opts.Theme = chart.DefaultTheme()
	}
	return &WebSocketHandler{
		registry: registry,
		backend:  backend,
		opts:     opts,
		logger:   logger.With().Str("component", "websocket").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket endpoint.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/views/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type   string          `json:"type"`
	ViewID string          `json:"viewId"`
	Data   json.RawMessage `json:"data"`
}

type mountMessage struct {
	Page     chat.Page `json:"page"`
	Surfaces []string  `json:"surfaces"`
}

type sendMessage struct {
	Text string `json:"text"`
}

// connectionState is the per-connection view instance. It is created on
// mount and torn down when the connection closes.
type connectionState struct {
	session      chat.ViewSession
	conversation *conversation.Controller
	charts       *chart.Controller
	dashboard    *dashboard.Dashboard
}

func (s *connectionState) mounted() bool {
	return s.session.ID != ""
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.backend == nil {
		http.Error(w, "classification service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := newConnWriter(conn, h.logger)
	state := &connectionState{}

	var tasks sync.WaitGroup
	defer func() {
		cancel()
		tasks.Wait()
		h.unmount(state)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.pingLoop(ctx, out)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("read error")
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if msg.ViewID != "" && state.mounted() && msg.ViewID != state.session.ID {
			out.sendError("view mismatch")
			continue
		}

		h.handleMessage(ctx, &tasks, out, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, tasks *sync.WaitGroup, out *connWriter, state *connectionState, msg *inboundMessage) {
	if msg.Type != "mount" && !state.mounted() {
		out.sendError("view not mounted")
		return
	}

	switch msg.Type {
	case "mount":
		h.handleMount(ctx, tasks, out, state, msg.Data)
	case "send":
		var payload sendMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			out.sendError("invalid send payload")
			return
		}
		spawn(tasks, func() { h.send(ctx, state, payload.Text) })
	case "load_history":
		spawn(tasks, func() { state.conversation.LoadHistory(ctx) })
	case "refresh_charts":
		if state.dashboard == nil {
			return
		}
		spawn(tasks, func() { h.refresh(ctx, out, state) })
	default:
		out.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *WebSocketHandler) handleMount(ctx context.Context, tasks *sync.WaitGroup, out *connWriter, state *connectionState, raw json.RawMessage) {
	if state.mounted() {
		out.sendError("view already mounted")
		return
	}

	var payload mountMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			out.sendError("invalid mount payload")
			return
		}
	}
	if payload.Page == chat.PageDashboard && len(payload.Surfaces) == 0 {
		payload.Surfaces = dashboard.Surfaces
	}

	session, err := h.registry.Mount(ctx, payload.Page, payload.Surfaces)
	if err != nil {
		out.sendError(err.Error())
		return
	}
	out.setViewID(session.ID)

	logger := h.logger.With().Str("view", session.ID).Str("page", string(session.Page)).Logger()
	state.session = session
	state.conversation = conversation.NewController(h.backend, wsView{out: out}, conversation.Options{
		HistoryLimit: h.opts.HistoryLimit,
		Logger:       logger,
	})
	state.charts = chart.NewController(wsRenderer{out: out}, chart.NewSurfaceSet(session.Surfaces...), h.opts.Theme, logger)

	logger.Info().Strs("surfaces", session.Surfaces).Msg("view mounted")
	out.send("mounted", session)

	switch session.Page {
	case chat.PageChat:
		spawn(tasks, func() { state.conversation.LoadHistory(ctx) })
	case chat.PageDashboard:
		state.dashboard = dashboard.New(h.backend, state.charts, logger).WithDistributionKind(h.opts.DistributionKind)
		spawn(tasks, func() { h.runDashboard(ctx, out, state) })
	}
}

func (h *WebSocketHandler) send(ctx context.Context, state *connectionState, text string) {
	err := state.conversation.Send(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrEmptyMessage), errors.Is(err, conversation.ErrSendInFlight):
		h.logger.Debug().Err(err).Str("view", state.session.ID).Msg("send ignored")
	default:
		h.logger.Warn().Err(err).Str("view", state.session.ID).Msg("send failed")
	}
}

func (h *WebSocketHandler) runDashboard(ctx context.Context, out *connWriter, state *connectionState) {
	h.refresh(ctx, out, state)
	if h.opts.RefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(h.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refresh(ctx, out, state)
		}
	}
}

func (h *WebSocketHandler) refresh(ctx context.Context, out *connWriter, state *connectionState) {
	if err := state.dashboard.RefreshCharts(ctx); err != nil {
		h.logger.Warn().Err(err).Str("view", state.session.ID).Msg("chart refresh incomplete")
	}

	summary, err := state.dashboard.Summary(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Str("view", state.session.ID).Msg("summary unavailable")
		return
	}
	out.send("summary", summary)
}

func (h *WebSocketHandler) unmount(state *connectionState) {
	if !state.mounted() {
		return
	}
	state.charts.DestroyAll()
	if err := h.registry.Unmount(context.Background(), state.session.ID); err != nil {
		h.logger.Warn().Err(err).Str("view", state.session.ID).Msg("unmount failed")
		return
	}
	h.logger.Info().Str("view", state.session.ID).Msg("view unmounted")
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, out *connWriter) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := out.ping(); err != nil {
				return
			}
		}
	}
}

func spawn(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}
