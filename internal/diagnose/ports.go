package diagnose

import (
	"context"
	"errors"
)

var (
	ErrProviderUnavailable = errors.New("inference provider unavailable")
	ErrAnalysisFailed      = errors.New("analysis failed")
)

// Result — структурированный ответ модели. Confidence всегда в [0,1].
type Result struct {
	Diagnosis   string  `json:"diagnosis"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

type Client interface {
	// Analyze — снимок + расшифрованный вопрос → диагноз.
	// Ошибка возможна только на сетевом/провайдерском уровне:
	// непарсибельный ответ модели деградирует в дефолтный Result.
	Analyze(ctx context.Context, image []byte, imageMIME, questionText string) (Result, error)
}
