package domain

import (
	"context"
	"fmt"

	"github.com/arogya-labs/voicedx/internal/notify"
	"github.com/arogya-labs/voicedx/internal/ports"
)

type diagnosisService struct {
	repo     ports.DiagnosisRepo
	notifier notify.Notificator
}

func NewDiagnosisService(repo ports.DiagnosisRepo, n notify.Notificator) ports.DiagnosisService {
	return &diagnosisService{
		repo:     repo,
		notifier: n,
	}
}

func (s *diagnosisService) Save(ctx context.Context, d *ports.Diagnosis, voiceQuery string) (int64, error) {
	id, err := s.repo.Save(ctx, d, voiceQuery)
	if err != nil {
		s.notifier.Notify(ctx, err,
			fmt.Sprintf("Ошибка записи диагноза: user=%s patient=%s", d.UserID, d.PatientName))
		return 0, err
	}
	return id, nil
}

func (s *diagnosisService) GetByID(ctx context.Context, id int64) (*ports.Diagnosis, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *diagnosisService) ListByUser(ctx context.Context, userID string) ([]ports.Diagnosis, error) {
	return s.repo.ListByUser(ctx, userID)
}
