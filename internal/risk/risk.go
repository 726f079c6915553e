// Package risk classifies free text into zero-or-one safety risk category
// by case-insensitive substring matching against a fixed keyword table.
package risk

import "strings"

// Category is one named risk class and its trigger keywords.
type Category struct {
	Name     string
	Keywords []string
}

// DefaultCategories returns the built-in keyword table. Slice order is scan
// order, so it must stay stable.
func DefaultCategories() []Category {
	return []Category{
		{
			Name: "tự hại",
			Keywords: []string{
				"muốn chết", "kết thúc", "tự tử", "không muốn sống",
				"tự làm đau", "dao kéo", "tuyệt vọng",
			},
		},
		{
			Name: "bạo lực",
			Keywords: []string{
				"bị đánh", "bị đập", "bị trấn", "bị đe dọa", "bắt nạt hội đồng",
			},
		},
	}
}

// Detector scans text against an ordered category table.
// It is read-only after construction and safe for concurrent use.
type Detector struct {
	categories []Category
}

// New builds a Detector from the given table. An empty table falls back to
// the defaults.
func New(categories []Category) *Detector {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	// Lowercase keywords up front so Classify only lowers the input.
	table := make([]Category, 0, len(categories))
	for _, c := range categories {
		kws := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			kws = append(kws, strings.ToLower(kw))
		}
		table = append(table, Category{Name: c.Name, Keywords: kws})
	}
	return &Detector{categories: table}
}

// Classify returns the name of the first category whose keyword occurs in
// text, scanning categories in table order and keywords in list order.
// The second return is false when no keyword matches.
//
// Matching is plain substring search, so keywords embedded in unrelated
// longer phrases trigger too. That is a known tradeoff of this design.
func (d *Detector) Classify(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, c := range d.categories {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(lower, kw) {
				return c.Name, true
			}
		}
	}
	return "", false
}
