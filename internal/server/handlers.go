package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/spendlens/spendlens/internal/expense"
	"github.com/spendlens/spendlens/internal/extraction"
	"github.com/spendlens/spendlens/internal/ingest"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// analyzeResponse is the result of one analyze request.
type analyzeResponse struct {
	State      string                `json:"state"`
	Outcome    string                `json:"outcome"`
	Message    string                `json:"message,omitempty"`
	Candidates []ingest.Candidate    `json:"candidates"`
	Failures   []ingest.ImageFailure `json:"failures,omitempty"`
	Rejected   []string              `json:"rejected,omitempty"`
	Truncated  int                   `json:"truncated,omitempty"`
}

// handleAnalyze accepts 1..5 receipt images as a multipart upload and runs
// one full ingestion session over them: validate, analyze, deduplicate.
// The candidate batch comes back for the client to review and commit.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(extraction.MaxImageSize * (ingest.MaxImages + 1)); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["images"]) == 0 {
		writeError(w, http.StatusBadRequest, "No images were selected. Please choose at least one receipt image.")
		return
	}

	var files []ingest.SelectedFile
	for _, header := range r.MultipartForm.File["images"] {
		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "Error reading uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading uploaded file", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "Error reading uploaded file")
			return
		}
		files = append(files, ingest.SelectedFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	categories, err := s.categories.ListCategories()
	if err != nil {
		slog.Error("Error listing categories", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	year, month := monthFromQuery(r)

	session := ingest.NewSession(s.orchestrator, s.committer, s.previews)
	defer session.Close()

	added, err := session.AddImages(files)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if added.Accepted == 0 {
		writeJSON(w, http.StatusBadRequest, analyzeResponse{
			State:    session.State().String(),
			Message:  "no valid images in selection",
			Rejected: added.Rejected,
		})
		return
	}

	outcome, err := session.Analyze(r.Context(), categories, ingest.MonthContext{Year: year, Month: month})
	if err != nil {
		slog.Error("Error running analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	candidates := outcome.Candidates
	if candidates == nil {
		candidates = []ingest.Candidate{}
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		State:      session.State().String(),
		Outcome:    outcome.Kind.String(),
		Message:    outcome.Message,
		Candidates: candidates,
		Failures:   outcome.Failures,
		Rejected:   added.Rejected,
		Truncated:  added.Truncated,
	})
}

// commitRequest carries the reviewed, possibly edited candidate batch.
type commitRequest struct {
	Candidates []ingest.Candidate `json:"candidates"`
}

// handleCommit persists the selected candidates from a reviewed batch
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	persisted, err := s.committer.Commit(req.Candidates)
	if err != nil {
		if errors.Is(err, ingest.ErrNothingSelected) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var commitErr *ingest.CommitError
		if errors.As(err, &commitErr) {
			slog.Error("Commit failed partway", "persisted", commitErr.Persisted, "selected", commitErr.Selected, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":     commitErr.Error(),
				"persisted": commitErr.Persisted,
			})
			return
		}
		slog.Error("Error committing candidates", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"persisted": persisted})
}

// handleListExpenses returns the expenses for one calendar month
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	year, month := monthFromQuery(r)
	expenses, err := s.expenses.ListExpenses(year, month)
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// handleCreateExpense creates one expense from a manual entry form
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var n expense.NewExpense
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.expenses.CreateExpense(n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleDeleteExpense removes one expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.expenses.DeleteExpense(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary returns the dashboard's monthly spending summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month := monthFromQuery(r)
	summary, err := s.expenses.Summarize(year, month, s.monthlyBudget)
	if err != nil {
		slog.Error("Error summarizing month", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleListCategories returns all categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories()
	if err != nil {
		slog.Error("Error listing categories", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleCreateCategory adds a new category
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "A category name is required")
		return
	}

	created, err := s.categories.CreateCategory(req.Name)
	if err != nil {
		slog.Error("Error creating category", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
