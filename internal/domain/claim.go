package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClaimRecord is one structured insurance claim from the indexed universe.
// The pipeline only ever reads these.
type ClaimRecord struct {
	ClaimID        string
	PatientName    string
	DoctorName     string
	Disease        string
	Procedure      string
	Status         ClaimStatus
	DenialReason   string
	ClaimAmount    float64
	ApprovedAmount float64
	ClaimDate      time.Time
	ProcessedDate  *time.Time
	Summary        string
}

// PolicyChunk is one indexed fragment of a policy document.
type PolicyChunk struct {
	ID      uuid.UUID
	Title   string
	Section string
	Content string
}
