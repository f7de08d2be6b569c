package ingest

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("transition", func() {
	type row struct {
		from    State
		event   Event
		to      State
		effects []Effect
	}

	DescribeTable("legal transitions",
		func(r row) {
			next, effects, err := transition(r.from, r.event)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(r.to))
			Expect(effects).To(Equal(r.effects))
		},
		Entry("upload to preview on selection", row{StateUpload, EventImagesAdded{Total: 2}, StatePreview, nil}),
		Entry("preview self-loop on add", row{StatePreview, EventImagesAdded{Total: 3}, StatePreview, nil}),
		Entry("preview self-loop on remove", row{StatePreview, EventImageRemoved{Remaining: 1}, StatePreview, nil}),
		Entry("preview to upload on removing the last image", row{StatePreview, EventImageRemoved{Remaining: 0}, StateUpload, nil}),
		Entry("preview to analyzing on confirm", row{StatePreview, EventAnalyzeRequested{}, StateAnalyzing, []Effect{EffectStartAnalysis}}),
		Entry("analyzing to results on full success", row{StateAnalyzing, EventAnalysisCompleted{Kind: OutcomeFullSuccess}, StateResults, nil}),
		Entry("analyzing to results on partial success", row{StateAnalyzing, EventAnalysisCompleted{Kind: OutcomePartialSuccess}, StateResults, nil}),
		Entry("analyzing to error when all failed", row{StateAnalyzing, EventAnalysisCompleted{Kind: OutcomeAllFailed}, StateError, nil}),
		Entry("analyzing to no-results when nothing recognized", row{StateAnalyzing, EventAnalysisCompleted{Kind: OutcomeNoneRecognized}, StateNoResults, nil}),
		Entry("error back to preview on retry", row{StateError, EventRetryRequested{}, StatePreview, nil}),
		Entry("error back to upload on reset", row{StateError, EventResetRequested{}, StateUpload, []Effect{EffectReleaseImages}}),
		Entry("no-results back to upload on reset", row{StateNoResults, EventResetRequested{}, StateUpload, []Effect{EffectReleaseImages}}),
		Entry("close from upload", row{StateUpload, EventCloseRequested{}, StateClosed, []Effect{EffectReleaseImages}}),
		Entry("close from preview", row{StatePreview, EventCloseRequested{}, StateClosed, []Effect{EffectReleaseImages}}),
		Entry("close mid-analysis", row{StateAnalyzing, EventCloseRequested{}, StateClosed, []Effect{EffectReleaseImages}}),
		Entry("close from results", row{StateResults, EventCloseRequested{}, StateClosed, []Effect{EffectReleaseImages}}),
		Entry("close from error", row{StateError, EventCloseRequested{}, StateClosed, []Effect{EffectReleaseImages}}),
	)

	DescribeTable("illegal transitions",
		func(from State, event Event) {
			next, effects, err := transition(from, event)
			var transitionErr *TransitionError
			Expect(errors.As(err, &transitionErr)).To(BeTrue())
			Expect(next).To(Equal(from))
			Expect(effects).To(BeEmpty())
		},
		Entry("analyzing refuses new images", StateAnalyzing, EventImagesAdded{Total: 1}),
		Entry("analyzing refuses another analyze", StateAnalyzing, EventAnalyzeRequested{}),
		Entry("upload refuses analyze with nothing selected", StateUpload, EventAnalyzeRequested{}),
		Entry("upload refuses an empty selection", StateUpload, EventImagesAdded{Total: 0}),
		Entry("results has no forward transition but close", StateResults, EventAnalyzeRequested{}),
		Entry("results refuses retry", StateResults, EventRetryRequested{}),
		Entry("no-results refuses retry", StateNoResults, EventRetryRequested{}),
		Entry("preview refuses a stray completion", StatePreview, EventAnalysisCompleted{Kind: OutcomeFullSuccess}),
		Entry("closed refuses everything", StateClosed, EventImagesAdded{Total: 1}),
	)
})
