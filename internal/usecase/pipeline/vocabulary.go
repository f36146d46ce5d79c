package pipeline

// Vocabulary holds the static term tables the extractor and constructor
// match against. It is loaded once at process start from the data
// dictionary and injected; the pipeline never mutates it.
type Vocabulary struct {
	// Diseases are colloquial condition terms as they appear in queries.
	Diseases []string
	// Procedures are known procedure names.
	Procedures []string
	// PolicyTerms mark policy/regulatory vocabulary.
	PolicyTerms []string
	// StatisticalTerms mark aggregate vocabulary.
	StatisticalTerms []string
	// SpecificTerms mark concrete claim-filter vocabulary.
	SpecificTerms []string
	// DenialSynonyms maps a colloquial denial phrase to the canonical
	// phrasings used in the indexed corpus (many-to-many).
	DenialSynonyms map[string][]string
}

// DefaultVocabulary returns the vocabulary of the claims data dictionary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Diseases: []string{
			"diabetes", "hypertension", "coronary artery disease", "heart disease",
			"asthma", "copd", "arthritis", "depression", "anxiety", "migraine",
			"pneumonia", "fracture", "cancer", "stroke", "sepsis", "appendicitis",
			"kidney disease", "heart failure",
		},
		Procedures: []string{
			"office visit", "lab tests", "x-ray", "mri scan", "ct scan",
			"ultrasound", "ecg", "blood work", "physical therapy", "surgery",
			"emergency room visit", "hospitalization", "chemotherapy",
			"radiation therapy", "dialysis", "endoscopy", "colonoscopy",
			"biopsy", "vaccination",
		},
		PolicyTerms: []string{
			"policy", "guideline", "coverage", "coverage rule", "procedure code",
			"pre-authorization", "pre-auth", "what is covered", "requirement",
			"medical necessity", "exclusion", "appeal", "covered service",
			"benefits",
		},
		StatisticalTerms: []string{
			"total", "count", "average", "sum", "how many", "statistics",
			"summary", "aggregate", "distribution", "percentage", "rate",
			"trend",
		},
		SpecificTerms: []string{
			"claim id", "patient id", "show me claims", "list claims",
			"specific claim", "denied claims", "approved claims", "pending claims",
			"find claims", "claim details", "claims for", "claims with",
			"denial reason", "claim amount", "claim date", "patient name",
			"doctor name",
		},
		DenialSynonyms: map[string][]string{
			"missing documentation":   {"Missing information", "Documentation insufficient", "Incomplete documentation"},
			"missing information":     {"Missing documentation", "Documentation insufficient", "Incomplete information"},
			"not covered":             {"Service not covered", "Not a covered service", "Coverage exclusion"},
			"pre-authorization":       {"Pre-authorization required", "Prior authorization needed", "Authorization missing"},
			"pre-existing":            {"Pre-existing condition", "Pre-existing condition exclusion"},
			"experimental":            {"Experimental treatment", "Investigational treatment"},
			"out of network":          {"Out-of-network provider", "Non-network provider"},
			"not medically necessary": {"Not medically necessary", "Medical necessity not established"},
		},
	}
}
