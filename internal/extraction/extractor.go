package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/spendlens/spendlens/internal/category"
)

// Item is one normalized expense line item extracted from a receipt image.
type Item struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	Time        *string `json:"time"` // HH:mm, nil when no time-of-day is known
	Amount      float64 `json:"amount"`
	CategoryID  *string `json:"category_id"`
	Description string  `json:"description"`
	IsEssential bool    `json:"is_essential"`
}

// Request carries the per-batch context an extractor needs to build its
// prompt and resolve categories.
type Request struct {
	Categories       []category.Category
	FallbackCategory string
	Today            string // YYYY-MM-DD
}

// Extractor defines the interface for receipt extraction backends.
type Extractor interface {
	// Extract analyzes one receipt image and returns its expense line items.
	// A receipt that legitimately contains no recognizable expenses returns
	// an empty slice and no error.
	Extract(ctx context.Context, imageData []byte, contentType string, req Request) ([]Item, error)
	// Close closes the extractor and releases resources
	Close() error
}

// buildPrompt renders the instruction prompt for a vision model. The model
// sees today's date (for relative or missing dates) and the caller's
// category names so its guesses resolve cleanly.
func buildPrompt(req Request) string {
	names := category.Names(req.Categories)

	var b strings.Builder
	b.WriteString("You are analyzing a photo of a purchase receipt. Read all text in the image and extract every individual expense you can identify.\n\n")
	fmt.Fprintf(&b, "Today's date is %s. Use it when the receipt shows no date or a relative date.\n", req.Today)
	fmt.Fprintf(&b, "Available spending categories: %s. Pick the closest one for each expense.\n\n", strings.Join(names, ", "))
	b.WriteString(`Return ONLY valid JSON in this exact format:
{
  "expenses": [
    {
      "date": "YYYY-MM-DD",
      "time": "HH:mm",
      "amount": 0.00,
      "category": "category name",
      "description": "short description",
      "is_essential": false
    }
  ]
}

Important:
- The date must be in YYYY-MM-DD format
- The time must be 24-hour HH:mm; use null if the receipt shows no time
- The amount must be a number (not a string)
- is_essential is true for necessities (groceries, utilities, medicine), false otherwise
- If the image contains no readable expenses, return {"expenses": []}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`)

	return b.String()
}
