package capture

import (
	"context"
	"fmt"
	"log"
	"sync"
)

type state int

const (
	stateIdle state = iota
	stateRecording
)

// Session — один сеанс записи: idle → recording → idle.
// Параллельных захватов нет, устройство держится эксклюзивно
// только внутри recording и освобождается на любом выходе.
type Session struct {
	device   Device
	settings Settings

	mu     sync.Mutex
	state  state
	stream Stream
	rec    *Recording
}

func NewSession(device Device) *Session {
	return &Session{
		device:   device,
		settings: DefaultSettings(),
	}
}

func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateRecording {
		return ErrAlreadyRecording
	}

	stream, err := s.device.Acquire(ctx, s.settings)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.stream = stream
	s.state = stateRecording
	log.Printf("[capture] started")
	return nil
}

// Stop финализирует запись. Прошлая запись, если была, вытесняется
// (её handle отзывается). Устройство освобождается всегда, даже при
// ошибке финализации.
func (s *Session) Stop() (*Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRecording {
		return nil, ErrNoActiveCapture
	}

	stream := s.stream
	s.stream = nil
	s.state = stateIdle
	defer stream.Release()

	data, mime, err := stream.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalize capture: %w", err)
	}

	if s.rec != nil {
		s.rec.Release()
	}
	s.rec = newRecording(data, mime)
	log.Printf("[capture] stopped, %d bytes (%s)", len(data), mime)
	return s.rec, nil
}

// Clear сбрасывает текущую запись. Вызов посреди записи откатывает
// сессию в idle и освобождает устройство.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateRecording {
		s.stream.Release()
		s.stream = nil
		s.state = stateIdle
		log.Printf("[capture] cleared mid-recording")
	}

	if s.rec != nil {
		s.rec.Release()
		s.rec = nil
	}
}

func (s *Session) Recording() *Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}
