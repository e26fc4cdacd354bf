package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/arogya-labs/voicedx/internal/capture"
)

const deepgramURL = "https://api.deepgram.com/v1/listen?model=nova-2&smart_format=true&language=en"

type DeepgramClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewDeepgramClient(apiKey string) *DeepgramClient {
	return &DeepgramClient{
		apiKey:  apiKey,
		baseURL: deepgramURL,
		client:  &http.Client{},
	}
}

func (c *DeepgramClient) Transcribe(ctx context.Context, rec *capture.Recording) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: DEEPGRAM_API_KEY not set", ErrProviderUnavailable)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL,
		bytes.NewReader(rec.Bytes()),
	)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", rec.MIME())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: deepgram request: %v", ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read deepgram response: %v", ErrTranscriptionFailed, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: deepgram: %s", ErrProviderUnavailable, body)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("%w: deepgram error: %s", ErrTranscriptionFailed, body)
	}

	var parsed struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode deepgram: %v", ErrTranscriptionFailed, err)
	}

	if len(parsed.Results.Channels) == 0 ||
		len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscriptionFailed)
	}

	text := strings.TrimSpace(parsed.Results.Channels[0].Alternatives[0].Transcript)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscriptionFailed)
	}
	return text, nil
}
