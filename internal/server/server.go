package server

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spendlens/spendlens/internal/category"
	"github.com/spendlens/spendlens/internal/expense"
	"github.com/spendlens/spendlens/internal/ingest"
)

// Server handles HTTP requests for the finance tracker
type Server struct {
	expenses      *expense.Service
	categories    category.Store
	orchestrator  *ingest.Orchestrator
	committer     *ingest.Committer
	previews      *ingest.PreviewStore
	monthlyBudget float64
	basicAuth     BasicAuth
	mux           *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Config collects the collaborators a Server needs.
type Config struct {
	Expenses      *expense.Service
	Categories    category.Store
	Orchestrator  *ingest.Orchestrator
	Committer     *ingest.Committer
	Previews      *ingest.PreviewStore
	MonthlyBudget float64
	BasicAuth     BasicAuth
}

// NewServer creates a new Server with default mux
func NewServer(cfg Config) *Server {
	return NewServerWithMux(cfg, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(cfg Config, mux *http.ServeMux) *Server {
	s := &Server{
		expenses:      cfg.Expenses,
		categories:    cfg.Categories,
		orchestrator:  cfg.Orchestrator,
		committer:     cfg.Committer,
		previews:      cfg.Previews,
		monthlyBudget: cfg.MonthlyBudget,
		basicAuth:     cfg.BasicAuth,
		mux:           mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="spendlens"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Receipt ingestion
	s.mux.HandleFunc("POST /api/ingest/analyze", s.requireAuth(s.handleAnalyze))
	s.mux.HandleFunc("POST /api/ingest/commit", s.requireAuth(s.handleCommit))

	// Expenses
	s.mux.HandleFunc("GET /api/expenses/summary", s.requireAuth(s.handleSummary))
	s.mux.HandleFunc("DELETE /api/expenses/{id}", s.requireAuth(s.handleDeleteExpense))
	s.mux.HandleFunc("GET /api/expenses", s.requireAuth(s.handleListExpenses))
	s.mux.HandleFunc("POST /api/expenses", s.requireAuth(s.handleCreateExpense))

	// Categories
	s.mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	s.mux.HandleFunc("POST /api/categories", s.requireAuth(s.handleCreateCategory))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS handling so preflight OPTIONS requests work
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.mux.ServeHTTP(w, r)
	}))
}

// ServeHTTP makes the Server usable directly in tests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// monthFromQuery reads year/month query parameters, defaulting to the
// current month.
func monthFromQuery(r *http.Request) (int, time.Month) {
	now := time.Now()
	year, month := now.Year(), now.Month()
	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y > 0 {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = time.Month(m)
	}
	return year, month
}
