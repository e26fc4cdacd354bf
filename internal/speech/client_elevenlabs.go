package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// фиксированный голосовой профиль озвучки диагноза
const (
	voiceStability       = 0.5
	voiceSimilarityBoost = 0.75
)

type ElevenLabsClient struct {
	apiKey  string
	voiceID string
	baseURL string
	httpCli *http.Client
}

func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: "https://api.elevenlabs.io",
		httpCli: http.DefaultClient,
	}
}

func (c *ElevenLabsClient) Configured() bool { return c.apiKey != "" }

// TEXT → SPEECH
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)

	payload, err := json.Marshal(map[string]any{
		"text": text,
		"voice_settings": map[string]any{
			"stability":        voiceStability,
			"similarity_boost": voiceSimilarityBoost,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs error: %s", string(b))
	}

	return io.ReadAll(resp.Body)
}
