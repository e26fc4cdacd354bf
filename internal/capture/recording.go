package capture

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Recording — финализированная запись вопроса. Байты неизменяемы,
// playback handle живёт до Release.
type Recording struct {
	data []byte
	mime string

	mu       sync.Mutex
	handle   string
	released bool
}

func newRecording(data []byte, mime string) *Recording {
	return &Recording{
		data:   data,
		mime:   mime,
		handle: fmt.Sprintf("mem://recording/%s", uuid.NewString()),
	}
}

func (r *Recording) Bytes() []byte { return r.data }
func (r *Recording) MIME() string  { return r.mime }

// Handle возвращает playback handle, ok=false после Release
func (r *Recording) Handle() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return "", false
	}
	return r.handle, true
}

func (r *Recording) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
	r.handle = ""
}
