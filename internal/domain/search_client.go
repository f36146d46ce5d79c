package domain

import (
	"context"
	"time"
)

// SearchResult is a single similarity hit from one of the external indices.
type SearchResult struct {
	ID        string
	Content   string
	Metadata  map[string]string
	ClaimDate time.Time // zero when the source has no date
	Score     float32
}

// ClaimIndex is the read capability over the structured claim-record index.
type ClaimIndex interface {
	// Search performs a vector similarity search over indexed claims.
	Search(ctx context.Context, queryVector []float32, limit int) ([]SearchResult, error)

	// FetchByID looks a claim up by its exact identifier.
	// Returns nil, nil if not found.
	FetchByID(ctx context.Context, claimID string) (*ClaimRecord, error)
}

// PolicyIndex is the read capability over the policy-document index.
type PolicyIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]SearchResult, error)
}

// VectorEncoder turns texts into embedding vectors via the external
// embedding capability.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
