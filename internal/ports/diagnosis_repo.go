package ports

import (
	"context"
	"time"
)

// DTO for a persisted diagnosis row
type Diagnosis struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	PatientName     string    `json:"patient_name"`
	ImageURL        string    `json:"image_url"`
	Diagnosis       string    `json:"diagnosis"`
	ConfidenceScore float64   `json:"confidence_score"`
	Explanation     string    `json:"explanation"`
	CreatedAt       time.Time `json:"created_at"`
}

// Audit payload appended alongside every saved diagnosis
type AuditDetails struct {
	DiagnosisID     int64   `json:"diagnosis_id"`
	PatientName     string  `json:"patient_name"`
	VoiceQuery      string  `json:"voice_query"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// Репозиторий Postgres
type DiagnosisRepo interface {
	// Save inserts the diagnosis row and its audit entry in one
	// transaction. A failed save leaves zero rows.
	Save(ctx context.Context, d *Diagnosis, voiceQuery string) (int64, error)

	GetByID(ctx context.Context, id int64) (*Diagnosis, error)
	ListByUser(ctx context.Context, userID string) ([]Diagnosis, error)
}
