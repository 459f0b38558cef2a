package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"budgetme/internal/core"
)

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	tf := core.Timeframe(mux.Vars(r)["timeframe"])
	// POST regenerates even when a cached result exists.
	force := r.Method == http.MethodPost || r.URL.Query().Get("force") == "true"

	result, err := s.orchestrator.Generate(r.Context(), userID(r), tf, force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: result, Warnings: result.Warnings})
}

func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	tf := core.Timeframe(mux.Vars(r)["timeframe"])
	uid := userID(r)

	result, err := s.orchestrator.Generate(r.Context(), uid, tf, false)
	if err != nil {
		writeError(w, err)
		return
	}

	generated, templated, err := s.insights.Generate(r.Context(), uid, result)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: map[string]any{
		"insights":     generated,
		"is_templated": templated,
	}})
}

func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.store.GetUsage(r.Context(), userID(r), s.usageLimit, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: usage})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	tf := core.Timeframe(mux.Vars(r)["timeframe"])
	if !tf.Valid() {
		writeError(w, core.NewValidationError("unknown timeframe", core.ErrInvalidTimeframe))
		return
	}
	ov := s.orchestrator.BuildOverview(r.Context(), userID(r), tf)
	writeJSON(w, http.StatusOK, envelope{Data: ov, Warnings: ov.Warnings})
}
