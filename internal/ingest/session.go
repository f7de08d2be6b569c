package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/spendlens/spendlens/internal/category"
	"github.com/spendlens/spendlens/internal/extraction"
)

// MaxImages is the ceiling on images per ingestion session.
const MaxImages = 5

// SelectedFile is one file the user picked, pre-validation.
type SelectedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// AddResult reports what happened to a selection of files.
type AddResult struct {
	Accepted  int      `json:"accepted"`
	Rejected  []string `json:"rejected,omitempty"`  // human-readable reasons
	Truncated int      `json:"truncated,omitempty"` // valid files dropped over the ceiling
}

// Session is the full lived state of one ingestion attempt, from image
// selection to commit or cancel. All mutation goes through its own methods;
// a session is safe for use from multiple goroutines.
type Session struct {
	mu sync.Mutex

	orchestrator *Orchestrator
	committer    *Committer
	previews     *PreviewStore

	state      State
	prevState  State
	images     []ImageItem
	candidates []Candidate
	message    string

	analyzedCount int
	totalCount    int

	// generation guards against results arriving after close or reset:
	// a stale orchestrator result is discarded, never applied.
	generation int
	closed     bool
}

// NewSession creates a session in the Upload state.
func NewSession(orchestrator *Orchestrator, committer *Committer, previews *PreviewStore) *Session {
	return &Session{
		orchestrator: orchestrator,
		committer:    committer,
		previews:     previews,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PreviousState returns the state before the last transition.
func (s *Session) PreviousState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prevState
}

// Message returns the last error or partial-failure message.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Images returns the held images in selection order.
func (s *Session) Images() []ImageItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ImageItem(nil), s.images...)
}

// Candidates returns the current candidate batch.
func (s *Session) Candidates() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Candidate(nil), s.candidates...)
}

// Progress returns how many images have been analyzed out of the total.
func (s *Session) Progress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzedCount, s.totalCount
}

// apply runs the pure transition and records the previous state.
func (s *Session) apply(ev Event) ([]Effect, error) {
	next, effects, err := transition(s.state, ev)
	if err != nil {
		return nil, err
	}
	s.prevState = s.state
	s.state = next
	return effects, nil
}

// AddImages validates the files and adds the valid ones, up to the ceiling.
// Invalid files are filtered out and reported without blocking the valid
// ones; valid files beyond the ceiling are dropped and counted.
func (s *Session) AddImages(files []SelectedFile) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUpload && s.state != StatePreview {
		return AddResult{}, &TransitionError{State: s.state, Event: EventImagesAdded{}}
	}

	var result AddResult
	var accepted []ImageItem
	for _, f := range files {
		if err := extraction.ValidateImage(f.ContentType, int64(len(f.Data))); err != nil {
			result.Rejected = append(result.Rejected, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		if len(s.images)+len(accepted) >= MaxImages {
			result.Truncated++
			continue
		}
		item := ImageItem{Name: f.Name, ContentType: f.ContentType, Data: f.Data}
		if s.previews != nil {
			handle, err := s.previews.Acquire(f.Data)
			if err != nil {
				result.Rejected = append(result.Rejected, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
			item.Preview = handle
		}
		accepted = append(accepted, item)
	}
	result.Accepted = len(accepted)

	if len(accepted) == 0 {
		return result, nil
	}

	s.images = append(s.images, accepted...)
	if _, err := s.apply(EventImagesAdded{Total: len(s.images)}); err != nil {
		// roll the acquisitions back so rejected selections leak nothing
		for _, item := range accepted {
			item.release()
		}
		s.images = s.images[:len(s.images)-len(accepted)]
		return AddResult{}, err
	}
	return result, nil
}

// RemoveImage removes one image and releases its preview. Removing the last
// image returns the session to the Upload state.
func (s *Session) RemoveImage(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.images) {
		return fmt.Errorf("no image at index %d", index)
	}

	removed := s.images[index]
	remaining := len(s.images) - 1
	if _, err := s.apply(EventImageRemoved{Remaining: remaining}); err != nil {
		return err
	}
	removed.release()
	s.images = append(s.images[:index], s.images[index+1:]...)
	return nil
}

// Analyze runs the batch orchestrator over the held images and settles the
// session in Results, Error or NoResults. If the session is closed while
// analysis is in flight, the late outcome is discarded.
func (s *Session) Analyze(ctx context.Context, categories []category.Category, month MonthContext) (BatchOutcome, error) {
	s.mu.Lock()
	if _, err := s.apply(EventAnalyzeRequested{}); err != nil {
		s.mu.Unlock()
		return BatchOutcome{}, err
	}
	generation := s.generation
	images := append([]ImageItem(nil), s.images...)
	s.analyzedCount = 0
	s.totalCount = len(images)
	s.mu.Unlock()

	outcome := s.orchestrator.Run(ctx, images, categories, month, func(done, total int) {
		s.mu.Lock()
		if s.generation == generation {
			s.analyzedCount = done
		}
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != generation {
		return outcome, nil
	}

	if _, err := s.apply(EventAnalysisCompleted{Kind: outcome.Kind}); err != nil {
		return outcome, err
	}
	s.message = outcome.Message
	if s.state == StateResults {
		s.candidates = outcome.Candidates
	}
	return outcome, nil
}

// SetSelected overrides the selection flag on one candidate. Duplicate
// status is advisory; the user may commit a flagged duplicate.
func (s *Session) SetSelected(id string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.candidates {
		if s.candidates[i].ID == id {
			s.candidates[i].Selected = selected
			return nil
		}
	}
	return fmt.Errorf("no candidate with id %s", id)
}

// UpdateCandidate replaces the editable fields of one candidate.
func (s *Session) UpdateCandidate(updated Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.candidates {
		if s.candidates[i].ID == updated.ID {
			updated.SourceImageIndex = s.candidates[i].SourceImageIndex
			updated.IsDuplicated = s.candidates[i].IsDuplicated
			s.candidates[i] = updated
			return nil
		}
	}
	return fmt.Errorf("no candidate with id %s", updated.ID)
}

// Retry returns from the error screen to the preview without re-selecting
// images.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.apply(EventRetryRequested{})
	return err
}

// Reset discards everything and returns to the Upload state.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	effects, err := s.apply(EventResetRequested{})
	if err != nil {
		return err
	}
	s.performEffects(effects)
	return nil
}

// Commit persists the selected candidates. On full success the session is
// torn down; on failure it stays open so the user can retry the remainder.
func (s *Session) Commit() (int, error) {
	s.mu.Lock()
	if s.state != StateResults {
		s.mu.Unlock()
		return 0, fmt.Errorf("nothing to commit in state %s", s.state)
	}
	candidates := append([]Candidate(nil), s.candidates...)
	s.mu.Unlock()

	persisted, err := s.committer.Commit(candidates)
	if err != nil {
		return persisted, err
	}

	s.Close()
	return persisted, nil
}

// Close tears the session down, releasing every held preview exactly once.
// Closing an already-closed session is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	effects, _ := s.apply(EventCloseRequested{})
	s.performEffects(effects)
	s.candidates = nil
	s.message = ""
}

// performEffects runs transition effects that touch session resources.
// Caller must hold the lock.
func (s *Session) performEffects(effects []Effect) {
	for _, effect := range effects {
		if effect == EffectReleaseImages {
			for i := range s.images {
				s.images[i].release()
			}
			s.images = nil
			s.generation++
			s.analyzedCount = 0
			s.totalCount = 0
		}
	}
}
