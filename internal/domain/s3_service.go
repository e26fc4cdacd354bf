package domain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/arogya-labs/voicedx/internal/ports"
)

type s3Service struct {
	client ports.S3Client
}

func NewS3Service(client ports.S3Client) ports.S3Service {
	return &s3Service{client: client}
}

// ObjectKey — путь в бакете
func (s *s3Service) ObjectKey(userID, filename string) string {
	date := time.Now().Format("2006-01-02")
	clean := filepath.Base(filename)
	return fmt.Sprintf("%s/%s/%s", userID, date, clean)
}

func (s *s3Service) SaveImage(
	ctx context.Context,
	userID string,
	file io.Reader,
	filename,
	contentType string,
) (string, error) {

	if userID == "" {
		return "", fmt.Errorf("userID required")
	}

	key := s.ObjectKey(userID, filename)

	// size = -1 → S3 клиент сам определит
	return s.client.PutObject(ctx, key, file, -1, contentType)
}

func (s *s3Service) SaveNarration(
	ctx context.Context,
	userID string,
	audio []byte,
	filename string,
) (string, error) {

	if userID == "" {
		return "", fmt.Errorf("userID required")
	}

	key := s.ObjectKey(userID, filename)
	return s.client.PutObject(ctx, key, bytes.NewReader(audio), int64(len(audio)), "audio/mpeg")
}
