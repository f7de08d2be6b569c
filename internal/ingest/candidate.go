package ingest

import (
	"github.com/google/uuid"

	"github.com/spendlens/spendlens/internal/extraction"
)

// Candidate is an expense line item proposed by extraction, annotated for
// the user's review. It lives only for the duration of an ingestion session
// and is freely editable until committed or discarded.
type Candidate struct {
	ID               string  `json:"id"`
	Date             string  `json:"date"` // YYYY-MM-DD
	Time             *string `json:"time"` // HH:mm, nil when no time-of-day is known
	Amount           float64 `json:"amount"`
	CategoryID       *string `json:"category_id"`
	Description      string  `json:"description"`
	IsEssential      bool    `json:"is_essential"`
	SourceImageIndex int     `json:"source_image_index"`
	IsDuplicated     bool    `json:"is_duplicated"`
	Selected         bool    `json:"selected"`
}

// newCandidate promotes an extracted item into a reviewable candidate tagged
// with the image it came from. Duplicate status and selection are settled
// later by MarkDuplicates.
func newCandidate(item extraction.Item, sourceImageIndex int) Candidate {
	return Candidate{
		ID:               uuid.NewString(),
		Date:             item.Date,
		Time:             item.Time,
		Amount:           item.Amount,
		CategoryID:       item.CategoryID,
		Description:      item.Description,
		IsEssential:      item.IsEssential,
		SourceImageIndex: sourceImageIndex,
		Selected:         true,
	}
}
