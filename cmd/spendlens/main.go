package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/spendlens/spendlens/internal/category"
	"github.com/spendlens/spendlens/internal/expense"
	"github.com/spendlens/spendlens/internal/extraction"
	"github.com/spendlens/spendlens/internal/ingest"
	"github.com/spendlens/spendlens/internal/server"
)

func main() {
	fs := ff.NewFlagSet("spendlens")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dataDir       = fs.StringLong("data", "./data", "Data directory")
		storeType     = fs.StringLong("store", "bolt", "Expense store backend: 'bolt' or 'sqlite'")
		extractorType = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set SPENDLENS_GEMINI_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl, bakllava)")
		fallbackCat   = fs.StringLong("fallback-category", "Other", "Category used when extraction output matches nothing")
		monthlyBudget = fs.Float64Long("monthly-budget", 0, "Monthly spending budget for the dashboard (0 disables)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPENDLENS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		slog.Error("Failed to create data directory", "path", *dataDir, "error", err)
		os.Exit(1)
	}

	// Expense store
	var store expense.Store
	var err error
	switch *storeType {
	case "bolt":
		slog.Info("Initializing bolt expense store...")
		store, err = expense.NewBoltStore(filepath.Join(*dataDir, "expenses.db"))
	case "sqlite":
		slog.Info("Initializing sqlite expense store...")
		store, err = expense.NewSQLiteStore(filepath.Join(*dataDir, "expenses.sqlite"))
	default:
		slog.Error("Invalid store type", "type", *storeType, "valid", "bolt or sqlite")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize expense store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Categories
	categories, err := category.NewBoltStore(filepath.Join(*dataDir, "categories.db"))
	if err != nil {
		slog.Error("Failed to initialize category store", "error", err)
		os.Exit(1)
	}
	defer categories.Close()

	// Extractor
	var extractor extraction.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or SPENDLENS_GEMINI_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize extractor", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	// Preview scratch storage
	previews, err := ingest.NewPreviewStore(filepath.Join(*dataDir, "previews"))
	if err != nil {
		slog.Error("Failed to initialize preview storage", "error", err)
		os.Exit(1)
	}

	expenseService := expense.NewService(store)
	orchestrator := ingest.NewOrchestrator(extractor, store, *fallbackCat)
	committer := ingest.NewCommitter(store)

	srv := server.NewServer(server.Config{
		Expenses:      expenseService,
		Categories:    categories,
		Orchestrator:  orchestrator,
		Committer:     committer,
		Previews:      previews,
		MonthlyBudget: *monthlyBudget,
		BasicAuth: server.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		},
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
