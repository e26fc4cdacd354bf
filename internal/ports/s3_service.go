package ports

import (
	"context"
	"io"
)

type S3Service interface {
	ObjectKey(userID, filename string) string

	// SaveImage — загрузка снимка, возвращает публичный URL
	SaveImage(ctx context.Context, userID string, file io.Reader, filename, contentType string) (string, error)

	// SaveNarration — озвучка диагноза (audio/mpeg)
	SaveNarration(ctx context.Context, userID string, audio []byte, filename string) (string, error)
}
