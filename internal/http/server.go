package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"budgetme/internal/insights"
	"budgetme/internal/log"
	"budgetme/internal/prediction"
	"budgetme/internal/services"
	"budgetme/internal/storage"
)

type Server struct {
	http.Server

	budgets      *services.BudgetService
	goals        *services.GoalService
	transactions *services.TransactionService
	orchestrator *prediction.Orchestrator
	insights     *insights.Generator
	store        *storage.Store
	sessions     SessionResolver
	usageLimit   int
	incomeFactor float64
	log          *log.Logger
}

// Deps carries everything the server routes to.
type Deps struct {
	Budgets      *services.BudgetService
	Goals        *services.GoalService
	Transactions *services.TransactionService
	Orchestrator *prediction.Orchestrator
	Insights     *insights.Generator
	Store        *storage.Store
	Sessions     SessionResolver
	DailyLimit   int
	IncomeFactor float64
	Logger       *log.Logger
}

func NewServer(port int, deps Deps) *Server {
	s := &Server{
		budgets:      deps.Budgets,
		goals:        deps.Goals,
		transactions: deps.Transactions,
		orchestrator: deps.Orchestrator,
		insights:     deps.Insights,
		store:        deps.Store,
		sessions:     deps.Sessions,
		usageLimit:   deps.DailyLimit,
		incomeFactor: deps.IncomeFactor,
		log:          deps.Logger.WithComponent(log.ComponentHTTP),
	}
	if s.incomeFactor < 1 {
		s.incomeFactor = 1.20
	}
	if s.sessions == nil {
		s.sessions = passthroughSessions{}
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/budgets", s.withAuth(s.handleListBudgets)).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.withAuth(s.handleCreateBudget)).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}", s.withAuth(s.handleGetBudget)).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}", s.withAuth(s.handleUpdateBudget)).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{id}", s.withAuth(s.handleDeleteBudget)).Methods(http.MethodDelete)

	api.HandleFunc("/goals", s.withAuth(s.handleListGoals)).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.withAuth(s.handleCreateGoal)).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}", s.withAuth(s.handleGetGoal)).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}", s.withAuth(s.handleDeleteGoal)).Methods(http.MethodDelete)
	api.HandleFunc("/goals/{id}/contributions", s.withAuth(s.handleContribute)).Methods(http.MethodPost)

	api.HandleFunc("/transactions", s.withAuth(s.handleListTransactions)).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.withAuth(s.handleCreateTransaction)).Methods(http.MethodPost)

	// The usage route must precede {timeframe} or it would be
	// captured as a timeframe value.
	api.HandleFunc("/predictions/usage", s.withAuth(s.handleGetUsage)).Methods(http.MethodGet)
	api.HandleFunc("/predictions/{timeframe}", s.withAuth(s.handleGetPrediction)).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/predictions/{timeframe}/insights", s.withAuth(s.handleGetInsights)).Methods(http.MethodGet)
	api.HandleFunc("/overview/{timeframe}", s.withAuth(s.handleOverview)).Methods(http.MethodGet)

	api.HandleFunc("/reports/spending", s.withAuth(s.handleSpendingReport)).Methods(http.MethodGet)
	api.HandleFunc("/reports/health", s.withAuth(s.handleHealthScore)).Methods(http.MethodGet)
	api.HandleFunc("/reports/contributions", s.withAuth(s.handleContributionReport)).Methods(http.MethodGet)

	api.HandleFunc("/notifications", s.withAuth(s.handleListNotifications)).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.withAuth(s.handleMarkNotificationRead)).Methods(http.MethodPost)

	s.Server = http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.withLogging(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: map[string]string{"status": "ok"}})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, envelope{Data: map[string]string{"status": "database unavailable"}})
			return
		}
	}
	writeJSON(w, http.StatusOK, envelope{Data: map[string]string{"status": "ready"}})
}
