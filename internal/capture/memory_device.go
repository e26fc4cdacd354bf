package capture

import (
	"context"
	"sync"
)

// MemoryDevice — «устройство», которому байты уже отдали снаружи
// (HTTP-аплоад). Эксклюзивность сохраняется: пока стрим не освобождён,
// повторный Acquire падает.
type MemoryDevice struct {
	mu   sync.Mutex
	busy bool
	data []byte
	mime string
}

func NewMemoryDevice(data []byte, mime string) *MemoryDevice {
	return &MemoryDevice{data: data, mime: mime}
}

func (d *MemoryDevice) Acquire(ctx context.Context, _ Settings) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.busy {
		return nil, ErrAlreadyRecording
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.busy = true
	return &memoryStream{device: d}, nil
}

type memoryStream struct {
	device *MemoryDevice
	once   sync.Once
}

func (s *memoryStream) Finalize() ([]byte, string, error) {
	return s.device.data, s.device.mime, nil
}

func (s *memoryStream) Release() {
	s.once.Do(func() {
		s.device.mu.Lock()
		s.device.busy = false
		s.device.mu.Unlock()
	})
}
