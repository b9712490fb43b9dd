package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/sentichat/internal/analytics"
	"github.com/zhouzirui/sentichat/internal/dashboard"
	"github.com/zhouzirui/sentichat/pkg/utils"
)

// DefaultStreamInterval paces the summary stream when no refresh interval is configured.
const DefaultStreamInterval = 30 * time.Second

// Handler exposes the dashboard stats card over HTTP.
type Handler struct {
	source   dashboard.Source
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a dashboard handler. A non-positive interval falls back to
// DefaultStreamInterval for the stream.
func New(source dashboard.Source, interval time.Duration, logger zerolog.Logger) *Handler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &Handler{
		source:   source,
		interval: interval,
		logger:   logger.With().Str("component", "dashboard_http").Logger(),
	}
}

// RegisterRoutes registers the dashboard routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/summary", h.handleSummary)
	r.Get("/dashboard/stream", h.handleStream)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := dashboard.FetchSummary(r.Context(), h.source)
	if err != nil {
		h.logger.Warn().Err(err).Msg("summary unavailable")
		utils.RespondError(w, statusFor(err), summaryErrorText(err))
		return
	}
	utils.RespondJSON(w, http.StatusOK, summary)
}

type streamError struct {
	Error string `json:"error"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	h.logger.Debug().Msg("opening summary stream")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.pushSummary(ctx, w, flusher)
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Msg("closing summary stream")
			return
		case <-ticker.C:
			h.pushSummary(ctx, w, flusher)
		}
	}
}

func (h *Handler) pushSummary(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) {
	summary, err := dashboard.FetchSummary(ctx, h.source)
	if err != nil {
		h.logger.Warn().Err(err).Msg("summary unavailable")
		utils.SendSSEEvent(w, flusher, "error", streamError{Error: summaryErrorText(err)})
		return
	}
	utils.SendSSEEvent(w, flusher, "summary", summary)
}

func statusFor(err error) int {
	if analytics.IsMalformed(err) {
		return http.StatusBadGateway
	}
	return http.StatusServiceUnavailable
}

func summaryErrorText(err error) string {
	if analytics.IsMalformed(err) {
		return "malformed analytics data"
	}
	return "analytics unavailable"
}
