package transcribe

import (
	"context"
	"errors"

	"github.com/arogya-labs/voicedx/internal/capture"
)

var (
	ErrProviderUnavailable = errors.New("transcription provider unavailable")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

type Client interface {
	// Transcribe — голос → текст. Пустой результат — это ошибка,
	// а не успех.
	Transcribe(ctx context.Context, rec *capture.Recording) (string, error)
}
