package domain

// QueryCategory classifies what a query is asking for, driving source routing.
type QueryCategory string

const (
	// CategorySpecific asks for concrete claims (by identifier or by filter values).
	CategorySpecific QueryCategory = "specific"
	// CategoryStatistical asks for aggregates (counts, totals, trends).
	CategoryStatistical QueryCategory = "statistical"
	// CategoryPolicy asks about coverage rules and policy language.
	CategoryPolicy QueryCategory = "policy"
	// CategoryGeneral is everything the rules cannot classify.
	CategoryGeneral QueryCategory = "general"
)

// ClaimStatus is the fixed claim status vocabulary.
type ClaimStatus string

const (
	StatusApproved          ClaimStatus = "Approved"
	StatusDenied            ClaimStatus = "Denied"
	StatusPending           ClaimStatus = "Pending"
	StatusPartiallyApproved ClaimStatus = "Partially Approved"
)

// AmountComparator is the comparison operator of an extracted amount threshold.
type AmountComparator string

const (
	AmountOver    AmountComparator = ">"
	AmountAtLeast AmountComparator = ">="
	AmountUnder   AmountComparator = "<"
	AmountAtMost  AmountComparator = "<="
)

// AmountThreshold is a monetary filter such as "over $5k".
type AmountThreshold struct {
	Comparator AmountComparator
	Value      float64
}

// TemporalRange holds every year and quarter mentioned in a query.
// Multiple mentions are all kept; nothing is truncated to the first match.
type TemporalRange struct {
	Years    []int
	Quarters []int // 1-4
}

// Intent is the structured reading of a free-text query.
// Category is always set; every other field is optional and independently absent.
// An Intent is immutable once produced for a query.
type Intent struct {
	Category     QueryCategory
	DirectLookup bool
	ClaimID      string

	Temporal   *TemporalRange
	Status     *ClaimStatus
	Diseases   []string
	Procedures []string
	Amount     *AmountThreshold

	// DenialHint is the raw denial-reason phrase found in the query, if any.
	// The query constructor expands it through the synonym table.
	DenialHint string
}

// HasFilters reports whether the intent carries any concrete metadata filter.
func (i Intent) HasFilters() bool {
	return i.Temporal != nil || i.Status != nil || len(i.Diseases) > 0 ||
		len(i.Procedures) > 0 || i.Amount != nil
}
