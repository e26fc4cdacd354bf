package capture

import (
	"context"
	"errors"
)

var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrAlreadyRecording  = errors.New("capture already in progress")
	ErrNoActiveCapture   = errors.New("no active capture")
)

// Settings — фиксированное качество записи, одно на весь сервис
type Settings struct {
	SampleRate       int
	Channels         int
	NoiseSuppression bool
	EchoCancellation bool
}

func DefaultSettings() Settings {
	return Settings{
		SampleRate:       44100,
		Channels:         1,
		NoiseSuppression: true,
		EchoCancellation: true,
	}
}

// Stream — эксклюзивно захваченное устройство ввода.
// Release идемпотентен и обязан вызываться на любом выходе из записи.
type Stream interface {
	// Finalize останавливает захват и отдаёт записанные байты + MIME
	Finalize() ([]byte, string, error)
	Release()
}

type Device interface {
	Acquire(ctx context.Context, s Settings) (Stream, error)
}
