package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/arogya-labs/voicedx/internal/ports"
)

const auditActionCreated = "voice_diagnosis_created"

type diagnosisRepo struct {
	db *sql.DB
}

func NewDiagnosisRepo(db *sql.DB) ports.DiagnosisRepo {
	return &diagnosisRepo{db: db}
}

// Save — диагноз + audit-запись одной транзакцией. Откат не оставляет
// ни одной строки.
func (r *diagnosisRepo) Save(ctx context.Context, d *ports.Diagnosis, voiceQuery string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	createdAt := time.Now()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO diagnoses (user_id, patient_name, image_url, diagnosis, confidence_score, explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, d.UserID, d.PatientName, d.ImageURL, d.Diagnosis, d.ConfidenceScore, d.Explanation, createdAt).Scan(&id)
	if err != nil {
		return 0, err
	}

	details, err := json.Marshal(ports.AuditDetails{
		DiagnosisID:     id,
		PatientName:     d.PatientName,
		VoiceQuery:      voiceQuery,
		ConfidenceScore: d.ConfidenceScore,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4)
	`, d.UserID, auditActionCreated, details, createdAt)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	d.ID = id
	d.CreatedAt = createdAt
	return id, nil
}

func (r *diagnosisRepo) GetByID(ctx context.Context, id int64) (*ports.Diagnosis, error) {
	var d ports.Diagnosis
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, patient_name, image_url, diagnosis, confidence_score, explanation, created_at
		FROM diagnoses
		WHERE id = $1
	`, id).Scan(
		&d.ID,
		&d.UserID,
		&d.PatientName,
		&d.ImageURL,
		&d.Diagnosis,
		&d.ConfidenceScore,
		&d.Explanation,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *diagnosisRepo) ListByUser(ctx context.Context, userID string) ([]ports.Diagnosis, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, patient_name, image_url, diagnosis, confidence_score, explanation, created_at
		FROM diagnoses
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ports.Diagnosis
	for rows.Next() {
		var d ports.Diagnosis
		if err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.PatientName,
			&d.ImageURL,
			&d.Diagnosis,
			&d.ConfidenceScore,
			&d.Explanation,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
