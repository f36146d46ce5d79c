package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"claims-orchestrator/internal/domain"
)

type claimIndexRepository struct {
	pool *pgxpool.Pool
}

// NewClaimIndexRepository creates a pgvector-backed claim index.
func NewClaimIndexRepository(pool *pgxpool.Pool) domain.ClaimIndex {
	return &claimIndexRepository{pool: pool}
}

func (r *claimIndexRepository) Search(ctx context.Context, vector []float32, limit int) ([]domain.SearchResult, error) {
	query := `
		SELECT claim_id, summary, status, disease, procedure, denial_reason,
		       claim_amount, claim_date,
		       1 - (embedding <=> $1) AS score
		FROM claims
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			res          domain.SearchResult
			status       string
			disease      string
			procedure    string
			denialReason *string
			claimAmount  float64
		)
		if err := rows.Scan(&res.ID, &res.Content, &status, &disease, &procedure,
			&denialReason, &claimAmount, &res.ClaimDate, &res.Score); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		res.Metadata = map[string]string{
			"status":    status,
			"disease":   disease,
			"procedure": procedure,
			"amount":    strconv.FormatFloat(claimAmount, 'f', 2, 64),
			"year":      strconv.Itoa(res.ClaimDate.Year()),
			"quarter":   strconv.Itoa(int(res.ClaimDate.Month()-1)/3 + 1),
		}
		if denialReason != nil && *denialReason != "" {
			res.Metadata["denial_reason"] = *denialReason
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// FetchByID returns nil, nil when the claim does not exist.
func (r *claimIndexRepository) FetchByID(ctx context.Context, claimID string) (*domain.ClaimRecord, error) {
	query := `
		SELECT claim_id, patient_name, doctor_name, disease, procedure, status,
		       denial_reason, claim_amount, approved_amount, claim_date,
		       processed_date, summary
		FROM claims
		WHERE claim_id = $1
	`
	var (
		record       domain.ClaimRecord
		denialReason *string
	)
	err := r.pool.QueryRow(ctx, query, claimID).Scan(
		&record.ClaimID, &record.PatientName, &record.DoctorName,
		&record.Disease, &record.Procedure, &record.Status,
		&denialReason, &record.ClaimAmount, &record.ApprovedAmount,
		&record.ClaimDate, &record.ProcessedDate, &record.Summary,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch claim %s: %w", claimID, err)
	}
	if denialReason != nil {
		record.DenialReason = *denialReason
	}
	return &record, nil
}

var _ domain.ClaimIndex = (*claimIndexRepository)(nil)
