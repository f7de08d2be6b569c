package category

import "strings"

// Category is a spending category an expense can be filed under.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolve maps free-text category output from the extraction service onto a
// known category. Matching is tried in order: exact case-insensitive name,
// substring containment in either direction, the configured fallback name,
// and finally the first available category. Returns nil only when the
// category list is empty.
func Resolve(raw string, categories []Category, fallbackName string) *string {
	if len(categories) == 0 {
		return nil
	}

	needle := strings.ToLower(strings.TrimSpace(raw))

	if needle != "" {
		for i := range categories {
			if strings.ToLower(categories[i].Name) == needle {
				return &categories[i].ID
			}
		}
		for i := range categories {
			name := strings.ToLower(categories[i].Name)
			if strings.Contains(name, needle) || strings.Contains(needle, name) {
				return &categories[i].ID
			}
		}
	}

	if fallbackName != "" {
		lowerFallback := strings.ToLower(fallbackName)
		for i := range categories {
			if strings.ToLower(categories[i].Name) == lowerFallback {
				return &categories[i].ID
			}
		}
	}

	return &categories[0].ID
}

// Names returns the category names in list order, for prompt construction.
func Names(categories []Category) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names
}
