package speech

import (
	"context"
	"fmt"
	"log"
)

// Service — цепочка синтеза: облачный провайдер, при любом его
// провале — локальная озвучка. Наверх уходит только
// ErrSynthesisUnsupported.
type Service struct {
	primary TTSProvider
	local   LocalPlayer
}

func NewService(primary TTSProvider, local LocalPlayer) *Service {
	return &Service{
		primary: primary,
		local:   local,
	}
}

func (s *Service) Synthesize(ctx context.Context, text string) (Artifact, error) {
	if s.primary != nil && s.primary.Configured() {
		audio, err := s.primary.Synthesize(ctx, text)
		if err == nil {
			log.Printf("[speech] primary synth ok, %d bytes", len(audio))
			return Artifact{Kind: ArtifactPrimary, Audio: audio, MIME: "audio/mpeg"}, nil
		}
		log.Printf("[speech] primary synth fail, falling back: %v", err)
	}

	if s.local == nil || !s.local.Available() {
		return Artifact{}, ErrSynthesisUnsupported
	}

	if err := s.local.Speak(ctx, text); err != nil {
		return Artifact{}, fmt.Errorf("%w: local playback: %v", ErrSynthesisUnsupported, err)
	}

	log.Printf("[speech] local fallback synth done")
	return Artifact{Kind: ArtifactFallback}, nil
}
