package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"claims-orchestrator/internal/domain"
)

type policyIndexRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyIndexRepository creates a pgvector-backed policy chunk index.
func NewPolicyIndexRepository(pool *pgxpool.Pool) domain.PolicyIndex {
	return &policyIndexRepository{pool: pool}
}

func (r *policyIndexRepository) Search(ctx context.Context, vector []float32, limit int) ([]domain.SearchResult, error) {
	query := `
		SELECT id, title, section, content,
		       1 - (embedding <=> $1) AS score
		FROM policy_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			chunk domain.PolicyChunk
			id    uuid.UUID
			score float32
		)
		if err := rows.Scan(&id, &chunk.Title, &chunk.Section, &chunk.Content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan policy chunk: %w", err)
		}
		chunk.ID = id
		results = append(results, domain.SearchResult{
			ID:      chunk.ID.String(),
			Content: chunk.Content,
			Metadata: map[string]string{
				"title":   chunk.Title,
				"section": chunk.Section,
			},
			Score: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

var _ domain.PolicyIndex = (*policyIndexRepository)(nil)
