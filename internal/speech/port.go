package speech

import (
	"context"
	"errors"
)

// ErrSynthesisUnsupported — единственная ошибка, которую синтез
// отдаёт наверх: нет ни ключа облачного провайдера, ни локальной
// озвучки.
var ErrSynthesisUnsupported = errors.New("speech synthesis unsupported")

type ArtifactKind int

const (
	// ArtifactPrimary — облачный синтез, есть скачиваемые байты
	ArtifactPrimary ArtifactKind = iota
	// ArtifactFallback — локальная озвучка, байтов нет (сентинел)
	ArtifactFallback
)

func (k ArtifactKind) String() string {
	if k == ArtifactFallback {
		return "fallback"
	}
	return "primary"
}

// Artifact — результат синтеза. Audio заполнен только у Primary.
type Artifact struct {
	Kind  ArtifactKind
	Audio []byte
	MIME  string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Artifact, error)
}

// Облачный TTS (текст → байты)
type TTSProvider interface {
	Configured() bool
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Локальная озвучка (текст → воспроизведение, без байтов)
type LocalPlayer interface {
	Available() bool
	Speak(ctx context.Context, text string) error
}
