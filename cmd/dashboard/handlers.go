package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/httpx"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/models"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/reportapi"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/stream"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/view"
)

type listResponse struct {
	State       string          `json:"state"`
	Error       string          `json:"error,omitempty"`
	RateLimited bool            `json:"rate_limited"`
	Total       int             `json:"total"`
	Reports     []models.Report `json:"reports"`
}

type statsResponse struct {
	State       string      `json:"state"`
	Error       string      `json:"error,omitempty"`
	RateLimited bool        `json:"rate_limited"`
	Tables      view.Tables `json:"tables"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if field := strings.TrimSpace(r.URL.Query().Get("sort")); field != "" {
		s.List.SetSort(field, r.URL.Query().Get("dir") != "desc")
	}

	err := s.List.Load(r.Context())
	state, errMsg, rateLimited := s.List.State()
	rows := s.List.Rows(r.URL.Query().Get("q"))
	resp := listResponse{
		State:       state.String(),
		Error:       errMsg,
		RateLimited: rateLimited,
		Total:       len(rows),
		Reports:     rows,
	}
	if err != nil {
		var rlErr *reportapi.RateLimitError
		if errors.As(err, &rlErr) {
			// Rate-limited refresh: loaded content stays usable, the
			// client decides how to surface the warning banner.
			if state == view.StateReady {
				httpx.WriteJSON(w, http.StatusOK, resp)
				return
			}
			httpx.WriteJSON(w, http.StatusTooManyRequests, resp)
			return
		}
		httpx.WriteJSON(w, http.StatusBadGateway, resp)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReportDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "report_id")
	report, err := s.List.Select(r.Context(), id)
	if err != nil {
		// Detail failures are the narrow path: already logged by the
		// view, list state untouched, no banner.
		httpx.Error(w, http.StatusNotFound, "report not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	err := s.Stats.Load(r.Context())
	state, errMsg, rateLimited := s.Stats.State()
	resp := statsResponse{
		State:       state.String(),
		Error:       errMsg,
		RateLimited: rateLimited,
		Tables:      s.Stats.Tables(),
	}
	if err != nil {
		if rateLimited {
			httpx.WriteJSON(w, http.StatusTooManyRequests, resp)
			return
		}
		httpx.WriteJSON(w, http.StatusBadGateway, resp)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "stream unavailable")
		return
	}
	opts := &websocket.AcceptOptions{}
	if origins := wsOriginPatterns(s.Config.AllowedOrigins); len(origins) > 0 {
		opts.OriginPatterns = origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub := s.Events.Subscribe(64)
	defer s.Events.Unsubscribe(sub)
	s.Metrics.SetGauge("stream_subscribers", float64(s.Events.Subscribers()))

	_ = wsjson.Write(ctx, conn, stream.NewEvent(stream.EventReady, nil))
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func wsOriginPatterns(allowedOrigins string) []string {
	var out []string
	for _, part := range strings.Split(allowedOrigins, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origin = strings.TrimPrefix(origin, "https://")
		origin = strings.TrimPrefix(origin, "http://")
		out = append(out, origin)
	}
	return out
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Metrics.Observe(r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the hijacker during
// websocket upgrades.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
