package ports

import "context"

type DiagnosisService interface {
	// Save — атомарная запись диагноза + audit-записи
	Save(ctx context.Context, d *Diagnosis, voiceQuery string) (int64, error)

	GetByID(ctx context.Context, id int64) (*Diagnosis, error)
	ListByUser(ctx context.Context, userID string) ([]Diagnosis, error)
}
