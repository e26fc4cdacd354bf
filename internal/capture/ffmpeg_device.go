package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FFmpegDevice пишет с ALSA-микрофона через ffmpeg в tmp-файл.
// Шумодав и компенсация эха — фиксированная цепочка фильтров.
type FFmpegDevice struct {
	Input string // alsa device, по умолчанию "default"
}

func NewFFmpegDevice() *FFmpegDevice {
	return &FFmpegDevice{Input: "default"}
}

func (d *FFmpegDevice) Acquire(ctx context.Context, s Settings) (Stream, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	tmp, err := os.CreateTemp("", "capture_*.ogg")
	if err != nil {
		return nil, err
	}
	tmp.Close()

	cmd := exec.Command("ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", "alsa",
		"-ar", strconv.Itoa(s.SampleRate),
		"-ac", strconv.Itoa(s.Channels),
		"-i", d.Input,
		"-af", filterChain(s),
		"-c:a", "libopus",
		"-y", tmp.Name(),
	)

	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &ffmpegStream{cmd: cmd, path: tmp.Name()}, nil
}

// filterChain собирает -af по настройкам: afftdn — шумодав, полосовой
// фильтр срезает низкочастотный гул и хвосты комнатного эха
func filterChain(s Settings) string {
	var filters []string
	if s.NoiseSuppression {
		filters = append(filters, "afftdn=nf=-25")
	}
	if s.EchoCancellation {
		filters = append(filters, "highpass=f=200", "lowpass=f=3000")
	}
	if len(filters) == 0 {
		return "anull"
	}
	return strings.Join(filters, ",")
}

type ffmpegStream struct {
	cmd  *exec.Cmd
	path string

	mu       sync.Mutex
	released bool
}

func (s *ffmpegStream) Finalize() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, "", fmt.Errorf("stream already released")
	}

	// SIGINT — ffmpeg корректно дописывает контейнер
	_ = s.cmd.Process.Signal(os.Interrupt)

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = s.cmd.Process.Kill()
		<-done
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("read capture file: %w", err)
	}
	return data, "audio/ogg", nil
}

func (s *ffmpegStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	s.released = true

	if s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Kill()
		go s.cmd.Wait()
	}
	os.Remove(s.path)
}
