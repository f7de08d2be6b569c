package ingest

import "fmt"

// State is one phase of an ingestion session.
type State int

const (
	// StateUpload: waiting for the user to select images
	StateUpload State = iota
	// StatePreview: images selected, analysis not yet requested
	StatePreview
	// StateAnalyzing: the batch orchestrator is running
	StateAnalyzing
	// StateResults: candidates are ready for review and commit
	StateResults
	// StateError: every image failed to analyze
	StateError
	// StateNoResults: analysis worked but nothing was recognized
	StateNoResults
	// StateClosed: the session is over; no further transitions
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUpload:
		return "upload"
	case StatePreview:
		return "preview"
	case StateAnalyzing:
		return "analyzing"
	case StateResults:
		return "results"
	case StateError:
		return "error"
	case StateNoResults:
		return "no_results"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is an input to the state machine.
type Event interface {
	isEvent()
}

// EventImagesAdded fires when valid images join the session.
type EventImagesAdded struct{ Total int }

// EventImageRemoved fires when one image is removed from the preview.
type EventImageRemoved struct{ Remaining int }

// EventAnalyzeRequested fires on explicit user confirmation to analyze.
type EventAnalyzeRequested struct{}

// EventAnalysisCompleted carries the orchestrator's terminal outcome.
type EventAnalysisCompleted struct{ Kind OutcomeKind }

// EventRetryRequested fires from the error screen to re-run analysis on the
// already-selected images.
type EventRetryRequested struct{}

// EventResetRequested fires to discard everything and start over.
type EventResetRequested struct{}

// EventCloseRequested fires when the session is dismissed.
type EventCloseRequested struct{}

func (EventImagesAdded) isEvent()       {}
func (EventImageRemoved) isEvent()      {}
func (EventAnalyzeRequested) isEvent()  {}
func (EventAnalysisCompleted) isEvent() {}
func (EventRetryRequested) isEvent()    {}
func (EventResetRequested) isEvent()    {}
func (EventCloseRequested) isEvent()    {}

// Effect is a side effect the session owner must perform after a transition.
type Effect int

const (
	// EffectStartAnalysis: invoke the batch orchestrator
	EffectStartAnalysis Effect = iota
	// EffectReleaseImages: release every held preview handle
	EffectReleaseImages
)

// TransitionError reports an event arriving in a state that has no
// transition for it.
type TransitionError struct {
	State State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %T in state %s", e.Event, e.State)
}

// transition is the pure state machine: given a state and an event it
// returns the next state and the effects to perform, or a TransitionError.
// Closing is legal from any state and always releases held images.
func transition(s State, ev Event) (State, []Effect, error) {
	if _, ok := ev.(EventCloseRequested); ok {
		return StateClosed, []Effect{EffectReleaseImages}, nil
	}

	switch s {
	case StateUpload:
		if e, ok := ev.(EventImagesAdded); ok && e.Total > 0 {
			return StatePreview, nil, nil
		}
	case StatePreview:
		switch e := ev.(type) {
		case EventImagesAdded:
			return StatePreview, nil, nil
		case EventImageRemoved:
			if e.Remaining == 0 {
				return StateUpload, nil, nil
			}
			return StatePreview, nil, nil
		case EventAnalyzeRequested:
			return StateAnalyzing, []Effect{EffectStartAnalysis}, nil
		}
	case StateAnalyzing:
		if e, ok := ev.(EventAnalysisCompleted); ok {
			switch e.Kind {
			case OutcomeAllFailed:
				return StateError, nil, nil
			case OutcomeNoneRecognized:
				return StateNoResults, nil, nil
			default:
				return StateResults, nil, nil
			}
		}
	case StateError:
		switch ev.(type) {
		case EventRetryRequested:
			return StatePreview, nil, nil
		case EventResetRequested:
			return StateUpload, []Effect{EffectReleaseImages}, nil
		}
	case StateNoResults:
		if _, ok := ev.(EventResetRequested); ok {
			return StateUpload, []Effect{EffectReleaseImages}, nil
		}
	}

	return s, nil, &TransitionError{State: s, Event: ev}
}
