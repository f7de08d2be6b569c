package ingest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spendlens/spendlens/internal/category"
	"github.com/spendlens/spendlens/internal/expense"
	"github.com/spendlens/spendlens/internal/extraction"
)

// extractReply scripts one per-image result for the mock extractor.
type extractReply struct {
	items []extraction.Item
	err   error
}

// mockExtractor is a mock implementation of extraction.Extractor that
// replays scripted per-image replies in call order. When started/proceed
// are set, each call announces itself and waits, so tests can interleave
// session operations with an in-flight analysis deterministically.
type mockExtractor struct {
	replies []extractReply
	calls   int
	started chan struct{} // closed on the first call, if set
	proceed chan struct{} // each call waits for one receive, if set
}

func (m *mockExtractor) Extract(ctx context.Context, imageData []byte, contentType string, req extraction.Request) ([]extraction.Item, error) {
	if m.started != nil && m.calls == 0 {
		close(m.started)
	}
	if m.proceed != nil {
		<-m.proceed
	}
	reply := m.replies[m.calls]
	m.calls++
	if reply.err != nil {
		return nil, reply.err
	}
	return reply.items, nil
}

func (m *mockExtractor) Close() error {
	return nil
}

// mockLister is a mock implementation of ExpenseLister
type mockLister struct {
	expenses []*expense.Expense
	listErr  error
	calls    int
}

func (m *mockLister) ListExpenses(year int, month time.Month) ([]*expense.Expense, error) {
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.expenses, nil
}

// fixedTime is a mock implementation of TimeSource
type fixedTime struct {
	now time.Time
}

func (f *fixedTime) Now() time.Time {
	return f.now
}

func item(date string, t *string, amount float64) extraction.Item {
	return extraction.Item{Date: date, Time: t, Amount: amount}
}

var _ = Describe("Orchestrator", func() {
	var (
		extractor    *mockExtractor
		lister       *mockLister
		orchestrator *Orchestrator
		images       []ImageItem
		categories   []category.Category
		month        MonthContext
		outcome      BatchOutcome
	)

	BeforeEach(func() {
		extractor = &mockExtractor{}
		lister = &mockLister{}
		orchestrator = NewOrchestratorWithDeps(extractor, lister, "Other", &fixedTime{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)})
		categories = []category.Category{{ID: "cat-other", Name: "Other"}}
		month = MonthContext{Year: 2026, Month: time.March}
		images = nil
	})

	JustBeforeEach(func() {
		outcome = orchestrator.Run(context.Background(), images, categories, month, nil)
	})

	When("every image fails", func() {
		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}, {Name: "b.jpg"}}
			extractor.replies = []extractReply{
				{err: &extraction.NetworkError{Err: errors.New("connection refused")}},
				{err: &extraction.APIError{StatusCode: 500}},
			}
		})

		It("classifies the outcome as AllFailed", func() {
			Expect(outcome.Kind).To(Equal(OutcomeAllFailed))
		})

		It("carries the total image count", func() {
			Expect(outcome.ImageCount).To(Equal(2))
			Expect(outcome.Message).To(ContainSubstring("all 2 image(s) failed"))
		})

		It("records every failure with its index", func() {
			Expect(outcome.Failures).To(HaveLen(2))
			Expect(outcome.Failures[0].Index).To(Equal(0))
			Expect(outcome.Failures[1].Index).To(Equal(1))
		})

		It("never fetches the dedup context", func() {
			Expect(lister.calls).To(BeZero())
		})
	})

	When("every image succeeds but none contains expenses", func() {
		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}, {Name: "b.jpg"}}
			extractor.replies = []extractReply{{}, {}}
		})

		It("classifies the outcome as NoneRecognized", func() {
			Expect(outcome.Kind).To(Equal(OutcomeNoneRecognized))
		})

		It("carries no candidates", func() {
			Expect(outcome.Candidates).To(BeEmpty())
		})
	})

	When("some images fail and the rest produce candidates", func() {
		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}, {Name: "b.jpg"}, {Name: "c.jpg"}}
			extractor.replies = []extractReply{
				{items: []extraction.Item{item("2026-03-05", timePtr("12:30"), 45)}},
				{err: &extraction.NetworkError{Err: errors.New("timeout")}},
				{items: []extraction.Item{item("2026-03-06", nil, 12)}},
			}
		})

		It("classifies the outcome as PartialSuccess", func() {
			Expect(outcome.Kind).To(Equal(OutcomePartialSuccess))
		})

		It("produces the human-readable partial summary", func() {
			Expect(outcome.Message).To(Equal("1 image(s) failed to analyze, showing results from the remaining 2"))
		})

		It("continues past the failing image", func() {
			Expect(extractor.calls).To(Equal(3))
			Expect(outcome.Candidates).To(HaveLen(2))
		})

		It("tags candidates with their source image index", func() {
			Expect(outcome.Candidates[0].SourceImageIndex).To(Equal(0))
			Expect(outcome.Candidates[1].SourceImageIndex).To(Equal(2))
		})
	})

	When("every image succeeds with candidates", func() {
		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}, {Name: "b.jpg"}}
			extractor.replies = []extractReply{
				{items: []extraction.Item{item("2026-03-05", nil, 1), item("2026-03-05", nil, 2)}},
				{items: []extraction.Item{item("2026-03-06", nil, 3)}},
			}
		})

		It("classifies the outcome as FullSuccess", func() {
			Expect(outcome.Kind).To(Equal(OutcomeFullSuccess))
		})

		It("concatenates per-image results in image order", func() {
			Expect(outcome.Candidates).To(HaveLen(3))
			Expect(outcome.Candidates[0].Amount).To(Equal(1.0))
			Expect(outcome.Candidates[1].Amount).To(Equal(2.0))
			Expect(outcome.Candidates[2].Amount).To(Equal(3.0))
		})

		It("assigns a unique ID to every candidate", func() {
			seen := make(map[string]bool)
			for _, c := range outcome.Candidates {
				Expect(c.ID).NotTo(BeEmpty())
				Expect(seen).NotTo(HaveKey(c.ID))
				seen[c.ID] = true
			}
		})

		It("fetches the dedup context exactly once", func() {
			Expect(lister.calls).To(Equal(1))
		})
	})

	When("a candidate matches a persisted expense", func() {
		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}}
			extractor.replies = []extractReply{
				{items: []extraction.Item{item("2026-03-05", timePtr("12:30"), 45)}},
			}
			lister.expenses = []*expense.Expense{persistedAt("2026-03-05T12:30:00+08:00", 45)}
		})

		It("marks it duplicated and deselected", func() {
			Expect(outcome.Candidates).To(HaveLen(1))
			Expect(outcome.Candidates[0].IsDuplicated).To(BeTrue())
			Expect(outcome.Candidates[0].Selected).To(BeFalse())
		})
	})

	When("the dedup context fetch fails", func() {
		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}}
			extractor.replies = []extractReply{
				{items: []extraction.Item{item("2026-03-05", timePtr("12:30"), 45)}},
			}
			lister.listErr = errors.New("store unavailable")
		})

		It("still succeeds", func() {
			Expect(outcome.Kind).To(Equal(OutcomeFullSuccess))
		})

		It("marks every candidate new and selected", func() {
			Expect(outcome.Candidates).To(HaveLen(1))
			Expect(outcome.Candidates[0].IsDuplicated).To(BeFalse())
			Expect(outcome.Candidates[0].Selected).To(BeTrue())
		})
	})

	Describe("the two-image partial scenario", func() {
		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}, {Name: "b.jpg"}}
			extractor.replies = []extractReply{
				{items: []extraction.Item{item("2026-03-05", timePtr("12:30"), 45)}},
				{err: &extraction.NetworkError{Err: errors.New("connection reset")}},
			}
			lister.expenses = []*expense.Expense{persistedAt("2026-03-05T12:30:00+08:00", 45)}
		})

		It("produces PartialSuccess with one deselected duplicate", func() {
			Expect(outcome.Kind).To(Equal(OutcomePartialSuccess))
			Expect(outcome.Candidates).To(HaveLen(1))
			Expect(outcome.Candidates[0].IsDuplicated).To(BeTrue())
			Expect(outcome.Candidates[0].Selected).To(BeFalse())
		})
	})

	Describe("progress reporting", func() {
		var progress [][2]int

		BeforeEach(func() {
			images = []ImageItem{{Name: "a.jpg"}, {Name: "b.jpg"}}
			extractor.replies = []extractReply{
				{items: []extraction.Item{item("2026-03-05", nil, 1)}},
				{err: &extraction.APIError{StatusCode: 429}},
			}
			progress = nil
		})

		JustBeforeEach(func() {
			// rerun with a progress callback; scripted replies reset first
			extractor.calls = 0
			outcome = orchestrator.Run(context.Background(), images, categories, month, func(done, total int) {
				progress = append(progress, [2]int{done, total})
			})
		})

		It("reports after each image, failures included", func() {
			Expect(progress).To(Equal([][2]int{{1, 2}, {2, 2}}))
		})
	})
})
