package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"claims-orchestrator/internal/domain"
)

var (
	claimIDPattern = regexp.MustCompile(`(?i)\b(CLM\d{7})\b`)
	yearPattern    = regexp.MustCompile(`\b(20\d{2})\b`)
	quarterPattern = regexp.MustCompile(`(?i)\b(?:q([1-4])|quarter ([1-4]))\b`)
	amountPattern  = regexp.MustCompile(`(?i)\b(over|above|more than|greater than|under|below|less than|at least|at most)\s+\$?(\d+(?:\.\d+)?)\s*(k)?\b`)
)

// Extractor parses free text into a structured Intent.
// Extraction is a total function: unrecognized text yields CategoryGeneral
// with every optional field absent.
type Extractor struct {
	vocab   Vocabulary
	now     func() time.Time
	minYear int
	maxYear int
	rules   []categoryRule
}

// categoryRule is one predicate->label rule. Rules are evaluated in slice
// order; the first match wins.
type categoryRule struct {
	name     string
	category domain.QueryCategory
	match    func(q string, intent domain.Intent) bool
}

// NewExtractor builds an extractor over the given vocabulary. The clock is
// injected so relative periods ("last quarter") resolve deterministically
// in tests; pass time.Now in production.
func NewExtractor(vocab Vocabulary, now func() time.Time) *Extractor {
	e := &Extractor{
		vocab:   vocab,
		now:     now,
		minYear: 2000,
		maxYear: 2035,
	}
	e.rules = []categoryRule{
		{
			name:     "policy_vocabulary",
			category: domain.CategoryPolicy,
			match: func(q string, _ domain.Intent) bool {
				return containsAny(q, vocab.PolicyTerms)
			},
		},
		{
			name:     "aggregate_vocabulary",
			category: domain.CategoryStatistical,
			match: func(q string, _ domain.Intent) bool {
				return containsAny(q, vocab.StatisticalTerms)
			},
		},
		{
			name:     "specific_vocabulary",
			category: domain.CategorySpecific,
			match: func(q string, _ domain.Intent) bool {
				return containsAny(q, vocab.SpecificTerms)
			},
		},
		{
			name:     "concrete_filter",
			category: domain.CategorySpecific,
			match: func(_ string, intent domain.Intent) bool {
				return intent.HasFilters()
			},
		},
	}
	return e
}

// Extract parses the query text. It never fails.
func (e *Extractor) Extract(text string) domain.Intent {
	q := strings.ToLower(text)
	intent := domain.Intent{Category: domain.CategoryGeneral}

	// An exact claim identifier forces a direct lookup, bypassing
	// semantic retrieval entirely.
	if m := claimIDPattern.FindString(text); m != "" {
		intent.Category = domain.CategorySpecific
		intent.DirectLookup = true
		intent.ClaimID = strings.ToUpper(m)
	}

	intent.Temporal = e.extractTemporal(q)
	intent.Status = extractStatus(q)
	intent.Diseases = matchTerms(q, e.vocab.Diseases)
	intent.Procedures = matchTerms(q, e.vocab.Procedures)
	intent.Amount = extractAmount(q)
	intent.DenialHint = e.extractDenialHint(q)

	if !intent.DirectLookup {
		intent.Category = e.classify(q, intent)
	}
	return intent
}

func (e *Extractor) classify(q string, intent domain.Intent) domain.QueryCategory {
	for _, rule := range e.rules {
		if rule.match(q, intent) {
			return rule.category
		}
	}
	return domain.CategoryGeneral
}

// extractTemporal collects every valid year and quarter mention, plus
// relative periods resolved against the injected clock.
func (e *Extractor) extractTemporal(q string) *domain.TemporalRange {
	tr := domain.TemporalRange{}

	for _, m := range yearPattern.FindAllString(q, -1) {
		year, err := strconv.Atoi(m)
		if err != nil || year < e.minYear || year > e.maxYear {
			continue
		}
		tr.Years = appendUniqueInt(tr.Years, year)
	}

	for _, m := range quarterPattern.FindAllStringSubmatch(q, -1) {
		digit := m[1]
		if digit == "" {
			digit = m[2]
		}
		quarter, err := strconv.Atoi(digit)
		if err != nil {
			continue
		}
		tr.Quarters = appendUniqueInt(tr.Quarters, quarter)
	}

	now := e.now()
	currentQuarter := int(now.Month()-1)/3 + 1
	if strings.Contains(q, "last quarter") {
		lastQuarter, year := currentQuarter-1, now.Year()
		if lastQuarter < 1 {
			lastQuarter, year = 4, year-1
		}
		tr.Quarters = appendUniqueInt(tr.Quarters, lastQuarter)
		tr.Years = appendUniqueInt(tr.Years, year)
	}
	if strings.Contains(q, "this quarter") {
		tr.Quarters = appendUniqueInt(tr.Quarters, currentQuarter)
		tr.Years = appendUniqueInt(tr.Years, now.Year())
	}
	if strings.Contains(q, "last year") {
		tr.Years = appendUniqueInt(tr.Years, now.Year()-1)
	}
	if strings.Contains(q, "this year") {
		tr.Years = appendUniqueInt(tr.Years, now.Year())
	}

	if len(tr.Years) == 0 && len(tr.Quarters) == 0 {
		return nil
	}
	return &tr
}

// extractStatus matches the fixed status vocabulary case-insensitively.
// Absent or ambiguous mentions leave the filter unset.
func extractStatus(q string) *domain.ClaimStatus {
	var found []domain.ClaimStatus

	// "partially approved" is checked first and masked so its "approved"
	// substring is not double counted.
	if strings.Contains(q, strings.ToLower(string(domain.StatusPartiallyApproved))) {
		found = append(found, domain.StatusPartiallyApproved)
		q = strings.ReplaceAll(q, strings.ToLower(string(domain.StatusPartiallyApproved)), "")
	}
	for _, status := range []domain.ClaimStatus{domain.StatusApproved, domain.StatusDenied, domain.StatusPending} {
		if strings.Contains(q, strings.ToLower(string(status))) {
			found = append(found, status)
		}
	}

	if len(found) != 1 {
		return nil
	}
	return &found[0]
}

// extractAmount recognizes comparator phrases followed by a currency-like
// numeric token, with "k"/"K" as a x1000 suffix.
func extractAmount(q string) *domain.AmountThreshold {
	m := amountPattern.FindStringSubmatch(q)
	if m == nil {
		return nil
	}

	value, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	if m[3] != "" {
		value *= 1000
	}

	var comparator domain.AmountComparator
	switch strings.ToLower(m[1]) {
	case "over", "above", "more than", "greater than":
		comparator = domain.AmountOver
	case "under", "below", "less than":
		comparator = domain.AmountUnder
	case "at least":
		comparator = domain.AmountAtLeast
	case "at most":
		comparator = domain.AmountAtMost
	default:
		return nil
	}

	return &domain.AmountThreshold{Comparator: comparator, Value: value}
}

func (e *Extractor) extractDenialHint(q string) string {
	keys := make([]string, 0, len(e.vocab.DenialSynonyms))
	for key := range e.vocab.DenialSynonyms {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if strings.Contains(q, key) {
			return key
		}
	}
	return ""
}

func matchTerms(q string, terms []string) []string {
	var matched []string
	for _, term := range terms {
		if strings.Contains(q, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

func containsAny(q string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}

func appendUniqueInt(values []int, v int) []int {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
