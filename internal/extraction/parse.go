package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spendlens/spendlens/internal/category"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// responsePayload is the raw service response, pre-normalization.
type responsePayload struct {
	Expenses []rawCandidate `json:"expenses"`
}

// rawCandidate keeps every field loosely typed so a single malformed field
// never fails the decode of the whole payload.
type rawCandidate struct {
	Date        any `json:"date"`
	Time        any `json:"time"`
	Amount      any `json:"amount"`
	Category    any `json:"category"`
	Description any `json:"description"`
	IsEssential any `json:"is_essential"`
}

// parseResponse parses the text returned by a vision model into normalized
// items. The model sometimes wraps its JSON in markdown code fences despite
// instructions, so fences are stripped before parsing. A payload without an
// expenses array is a valid zero-item response; a payload with no parsable
// JSON is a MalformedResponseError.
func parseResponse(text string, req Request) ([]Item, error) {
	text = stripCodeFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &MalformedResponseError{Err: fmt.Errorf("no JSON object found in response")}
	}
	text = text[start : end+1]

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var payload responsePayload
	if err := dec.Decode(&payload); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	items := make([]Item, 0, len(payload.Expenses))
	for _, raw := range payload.Expenses {
		item, ok := normalizeCandidate(raw, req)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// stripCodeFences removes optional leading/trailing markdown code fence
// markers around a JSON payload.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// normalizeCandidate applies the per-item normalization rules. Every field
// except amount coerces to a safe default; an amount that cannot coerce to a
// non-negative finite number drops this one item without touching siblings.
func normalizeCandidate(raw rawCandidate, req Request) (Item, bool) {
	amount, ok := coerceAmount(raw.Amount)
	if !ok {
		return Item{}, false
	}

	return Item{
		Date:        coerceDate(raw.Date, req.Today),
		Time:        coerceTime(raw.Time),
		Amount:      amount,
		CategoryID:  category.Resolve(coerceString(raw.Category), req.Categories, req.FallbackCategory),
		Description: coerceString(raw.Description),
		IsEssential: coerceBool(raw.IsEssential),
	}, true
}

func coerceAmount(v any) (float64, bool) {
	var amount float64
	switch value := v.(type) {
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0, false
		}
		amount = f
	case float64:
		amount = value
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		amount = f
	default:
		return 0, false
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, false
	}
	return amount, true
}

func coerceDate(v any, today string) string {
	s, ok := v.(string)
	if !ok || !datePattern.MatchString(s) {
		return today
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return today
	}
	return s
}

func coerceTime(v any) *string {
	s, ok := v.(string)
	if !ok || !timePattern.MatchString(s) {
		return nil
	}
	return &s
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func coerceBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
