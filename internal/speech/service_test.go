package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeTTS struct {
	configured bool
	audio      []byte
	err        error
	calls      int
}

func (f *fakeTTS) Configured() bool { return f.configured }

func (f *fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.calls++
	return f.audio, f.err
}

type fakePlayer struct {
	available bool
	err       error
	calls     int
}

func (f *fakePlayer) Available() bool { return f.available }

func (f *fakePlayer) Speak(ctx context.Context, text string) error {
	f.calls++
	return f.err
}

func TestSynthesize_Primary(t *testing.T) {
	primary := &fakeTTS{configured: true, audio: []byte("mp3")}
	local := &fakePlayer{available: true}
	s := NewService(primary, local)

	a, err := s.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Kind != ArtifactPrimary || string(a.Audio) != "mp3" || a.MIME != "audio/mpeg" {
		t.Errorf("artifact = %+v", a)
	}
	if local.calls != 0 {
		t.Error("fallback must not run when primary succeeds")
	}
}

func TestSynthesize_PrimaryFailureTriggersFallback(t *testing.T) {
	primary := &fakeTTS{configured: true, err: fmt.Errorf("elevenlabs error: status 401")}
	local := &fakePlayer{available: true}
	s := NewService(primary, local)

	a, err := s.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Kind != ArtifactFallback {
		t.Errorf("kind = %v, want fallback", a.Kind)
	}
	if a.Audio != nil {
		t.Error("fallback artifact must not carry audio bytes")
	}
	if local.calls != 1 {
		t.Errorf("fallback calls = %d, want 1", local.calls)
	}
}

func TestSynthesize_NoKeyGoesStraightToFallback(t *testing.T) {
	primary := &fakeTTS{configured: false}
	local := &fakePlayer{available: true}
	s := NewService(primary, local)

	a, err := s.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Kind != ArtifactFallback {
		t.Errorf("kind = %v, want fallback", a.Kind)
	}
	if primary.calls != 0 {
		t.Error("unconfigured primary must not be called")
	}
}

func TestSynthesize_Unsupported(t *testing.T) {
	s := NewService(&fakeTTS{configured: false}, &fakePlayer{available: false})

	_, err := s.Synthesize(context.Background(), "hello")
	if !errors.Is(err, ErrSynthesisUnsupported) {
		t.Fatalf("err = %v, want ErrSynthesisUnsupported", err)
	}
}

func TestSynthesize_LocalFailureIsUnsupported(t *testing.T) {
	primary := &fakeTTS{configured: true, err: errors.New("network down")}
	local := &fakePlayer{available: true, err: errors.New("no audio sink")}
	s := NewService(primary, local)

	_, err := s.Synthesize(context.Background(), "hello")
	// наверх уходит только ErrSynthesisUnsupported, ничего другого
	if !errors.Is(err, ErrSynthesisUnsupported) {
		t.Fatalf("err = %v, want ErrSynthesisUnsupported", err)
	}
}
