package config

import (
	"fmt"
	"os"
)

// Config carries everything the service reads from the environment.
// Provider keys are optional: a missing transcription or inference key
// surfaces as a provider error at call time, a missing synthesis key
// routes synthesis straight to the on-device fallback.
type Config struct {
	Port        string
	DatabaseURL string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string

	TranscriptionAPIKey string
	InferenceAPIKey     string
	SynthesisAPIKey     string

	// ElevenLabs voice used for every narration.
	SynthesisVoiceID string

	// Telegram ops-chat notifier, optional.
	OpsBotToken string
	OpsChatID   int64
}

const defaultVoiceID = "EXAVITQu4vr4xnSDxMaL" // Rachel

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    os.Getenv("S3_REGION"),

		TranscriptionAPIKey: os.Getenv("DEEPGRAM_API_KEY"),
		InferenceAPIKey:     os.Getenv("OPENAI_API_KEY"),
		SynthesisAPIKey:     os.Getenv("ELEVENLABS_API_KEY"),
		SynthesisVoiceID:    getEnv("ELEVENLABS_VOICE_ID", defaultVoiceID),

		OpsBotToken: os.Getenv("OPS_BOT_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	if id := os.Getenv("OPS_CHAT_ID"); id != "" {
		if _, err := fmt.Sscan(id, &cfg.OpsChatID); err != nil {
			return nil, fmt.Errorf("invalid OPS_CHAT_ID: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
