package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/outcome"
)

// feedbackLookbackDefault bounds how far back a feedback summary looks
// when the caller doesn't pass ?days=.
const feedbackLookbackDefault = 30 * 24 * time.Hour

// handleHealth is a liveness probe: it never touches the database, so it
// stays green even while a migration or long collector run holds a lock.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "gpwsignal"})
}

// handleStatus reports the current session and trading-day state
// (spec.md §6 operator surface).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.cal.Now()
	session := s.cal.CurrentSession()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"now_utc":        now,
		"is_trading_day": s.cal.IsTradingDay(now),
		"is_in_session":  s.cal.IsInSession(now),
		"session_open":   session.OpenTime,
		"session_close":  session.CloseTime,
	})
}

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.stocks.ListMonitored(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stocks)
}

func (s *Server) handleOpenSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := s.signals.OpenSignals(r.Context(), s.cal.Now())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, signals)
}

func (s *Server) handleRecentExecutions(w http.ResponseWriter, r *http.Request) {
	kind := domain.ScheduleKind(chi.URLParam(r, "kind"))
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	execs, err := s.schedules.RecentExecutions(r.Context(), kind, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, execs)
}

// handleStockFeedback reports the win-rate/return feedback aggregate for
// a monitored stock's resolved signals (spec.md overview's "feedback
// aggregates"), optionally narrowed by ?days=.
func (s *Server) handleStockFeedback(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	lookback := feedbackLookbackDefault
	if q := r.URL.Query().Get("days"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			lookback = time.Duration(n) * 24 * time.Hour
		}
	}

	summary, err := outcome.Summarize(r.Context(), s.signals, symbol, s.cal.Now().Add(-lookback))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
