package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spendlens/spendlens/internal/category"
	"github.com/spendlens/spendlens/internal/expense"
	"github.com/spendlens/spendlens/internal/extraction"
)

// OutcomeKind classifies how a batch of images fared. Every combination of
// per-image results maps to exactly one kind.
type OutcomeKind int

const (
	// OutcomeAllFailed: every image failed to analyze
	OutcomeAllFailed OutcomeKind = iota
	// OutcomeNoneRecognized: analysis worked but no image contained expenses
	OutcomeNoneRecognized
	// OutcomePartialSuccess: some images failed, the rest produced candidates
	OutcomePartialSuccess
	// OutcomeFullSuccess: every image analyzed and produced candidates
	OutcomeFullSuccess
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAllFailed:
		return "all_failed"
	case OutcomeNoneRecognized:
		return "none_recognized"
	case OutcomePartialSuccess:
		return "partial_success"
	case OutcomeFullSuccess:
		return "full_success"
	default:
		return "unknown"
	}
}

// ImageFailure records one image that could not be analyzed.
type ImageFailure struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BatchOutcome is the terminal result of analyzing a batch of images.
type BatchOutcome struct {
	Kind       OutcomeKind    `json:"kind"`
	Candidates []Candidate    `json:"candidates"`
	Failures   []ImageFailure `json:"failures"`
	ImageCount int            `json:"image_count"`
	Message    string         `json:"message"`
}

// MonthContext identifies the calendar month being ingested into.
type MonthContext struct {
	Year  int
	Month time.Month
}

// ExpenseLister provides the dedup context: the month's persisted expenses.
type ExpenseLister interface {
	ListExpenses(year int, month time.Month) ([]*expense.Expense, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Orchestrator drives extraction across a batch of images and folds the
// per-image results into one terminal outcome.
type Orchestrator struct {
	extractor        extraction.Extractor
	expenses         ExpenseLister
	fallbackCategory string
	timeSource       TimeSource
}

// NewOrchestrator creates a new Orchestrator with the default time source
func NewOrchestrator(extractor extraction.Extractor, expenses ExpenseLister, fallbackCategory string) *Orchestrator {
	return NewOrchestratorWithDeps(extractor, expenses, fallbackCategory, &defaultTimeSource{})
}

// NewOrchestratorWithDeps creates a new Orchestrator with a custom time source for testing
func NewOrchestratorWithDeps(extractor extraction.Extractor, expenses ExpenseLister, fallbackCategory string, timeSource TimeSource) *Orchestrator {
	return &Orchestrator{
		extractor:        extractor,
		expenses:         expenses,
		fallbackCategory: fallbackCategory,
		timeSource:       timeSource,
	}
}

// Run analyzes the images strictly one at a time, in selection order. The
// extraction service rate-limits per caller, so fanning out would trade a
// slow batch for a failed one. One failing image never aborts the batch;
// its failure is recorded and the loop moves on. The merged candidate list
// is the concatenation of per-image results in image order.
//
// progress, when non-nil, is called after each image with the number
// processed so far and the total.
func (o *Orchestrator) Run(ctx context.Context, images []ImageItem, categories []category.Category, month MonthContext, progress func(done, total int)) BatchOutcome {
	req := extraction.Request{
		Categories:       categories,
		FallbackCategory: o.fallbackCategory,
		Today:            o.timeSource.Now().Format("2006-01-02"),
	}

	var (
		candidates   []Candidate
		failures     []ImageFailure
		successCount int
	)

	for i, img := range images {
		items, err := o.extractor.Extract(ctx, img.Data, img.ContentType, req)
		if err != nil {
			slog.Error("Failed to analyze image",
				"index", i,
				"name", img.Name,
				"error", err,
			)
			failures = append(failures, ImageFailure{Index: i, Message: err.Error()})
		} else {
			successCount++
			for _, item := range items {
				candidates = append(candidates, newCandidate(item, i))
			}
		}
		if progress != nil {
			progress(i+1, len(images))
		}
	}

	outcome := BatchOutcome{
		Candidates: candidates,
		Failures:   failures,
		ImageCount: len(images),
	}

	switch {
	case successCount == 0:
		outcome.Kind = OutcomeAllFailed
		outcome.Message = fmt.Sprintf("all %d image(s) failed to analyze", len(images))
		return outcome
	case len(candidates) == 0:
		outcome.Kind = OutcomeNoneRecognized
		outcome.Message = "no expenses were recognized in the analyzed image(s)"
		return outcome
	case len(failures) > 0:
		outcome.Kind = OutcomePartialSuccess
		outcome.Message = fmt.Sprintf("%d image(s) failed to analyze, showing results from the remaining %d", len(failures), successCount)
	default:
		outcome.Kind = OutcomeFullSuccess
	}

	outcome.Candidates = o.markDuplicates(candidates, month)
	return outcome
}

// markDuplicates fetches the month's persisted expenses once and runs the
// matcher. A failed fetch degrades to skipping dedup rather than discarding
// extraction results over a secondary lookup.
func (o *Orchestrator) markDuplicates(candidates []Candidate, month MonthContext) []Candidate {
	existing, err := o.expenses.ListExpenses(month.Year, month.Month)
	if err != nil {
		slog.Warn("Failed to fetch dedup context, skipping duplicate detection",
			"year", month.Year,
			"month", month.Month,
			"error", err,
		)
		return markAllNew(candidates)
	}
	return MarkDuplicates(candidates, existing)
}
