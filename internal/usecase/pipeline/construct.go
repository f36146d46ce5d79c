package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"claims-orchestrator/internal/domain"
)

// Constructor expands a query into a small set of retrieval variants.
// The synonym table is static configuration injected at construction; the
// decay factor weights expansions below the original so vocabulary-mismatch
// matches surface without outranking the user's own phrasing.
type Constructor struct {
	synonyms    map[string][]string
	decay       float64
	maxVariants int
}

// NewConstructor builds a constructor. maxVariants caps retrieval fan-out;
// decay is applied once per expansion step.
func NewConstructor(synonyms map[string][]string, decay float64, maxVariants int) *Constructor {
	return &Constructor{
		synonyms:    synonyms,
		decay:       decay,
		maxVariants: maxVariants,
	}
}

// Construct produces 1..maxVariants variants. The original text is always
// first at weight 1.0; output is deduplicated by normalized string.
func (c *Constructor) Construct(text string, intent domain.Intent) []domain.QueryVariant {
	variants := []domain.QueryVariant{
		{Text: text, Origin: domain.VariantOriginal, Weight: 1.0},
	}
	seen := map[string]bool{normalizeQuery(text): true}
	weight := 1.0

	appendVariant := func(candidate string, origin domain.VariantOrigin) {
		if len(variants) >= c.maxVariants {
			return
		}
		key := normalizeQuery(candidate)
		if key == "" || seen[key] {
			return
		}
		weight *= c.decay
		variants = append(variants, domain.QueryVariant{
			Text:   candidate,
			Origin: origin,
			Weight: weight,
		})
		seen[key] = true
	}

	// Synonym expansion for denial-reason / coverage phrases. Keys are
	// walked in sorted order so output is deterministic.
	lower := strings.ToLower(text)
	keys := make([]string, 0, len(c.synonyms))
	for key := range c.synonyms {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		idx := strings.Index(lower, key)
		if idx < 0 {
			continue
		}
		for _, canonical := range c.synonyms[key] {
			replaced := text[:idx] + canonical + text[idx+len(key):]
			appendVariant(replaced, domain.VariantSynonymExpanded)
		}
	}

	// A filter-narrowed variant restates the query with its extracted
	// entities made explicit.
	if narrowed := narrowByFilters(text, intent); narrowed != "" {
		appendVariant(narrowed, domain.VariantFilterNarrowed)
	}

	return variants
}

func narrowByFilters(text string, intent domain.Intent) string {
	var parts []string
	parts = append(parts, intent.Diseases...)
	parts = append(parts, text)
	if intent.Temporal != nil {
		for _, quarter := range intent.Temporal.Quarters {
			parts = append(parts, fmt.Sprintf("Q%d", quarter))
		}
		for _, year := range intent.Temporal.Years {
			parts = append(parts, fmt.Sprintf("%d", year))
		}
	}
	if len(parts) == 1 {
		return ""
	}
	return strings.Join(parts, " ")
}

func normalizeQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
