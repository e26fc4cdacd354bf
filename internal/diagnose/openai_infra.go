package diagnose

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// системный промпт «врача»: короткий разговорный ответ + вшитый
// JSON-блок, который мы потом выковыриваем из прозы
const doctorSystemPrompt = `You have to act as a professional doctor, i know you are not but this is for learning purpose.
What's in this image? Do you find anything wrong with it medically?
If you make a differential, suggest some remedies for them.
Answer as if you are answering to a real person: do not say 'In the image I see' but say 'With what I see, I think you have ...'.
Keep the conversational answer concise (max 2 sentences), no preamble.
After the answer append a single JSON object of the form
{"diagnosis": "...", "confidence": 0.0-1.0, "explanation": "..."}
where explanation repeats the conversational answer.`

type OpenAIClient struct {
	client *openai.Client
	hasKey bool
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		hasKey: apiKey != "",
	}
}

func (c *OpenAIClient) Analyze(ctx context.Context, image []byte, imageMIME, questionText string) (Result, error) {
	if !c.hasKey {
		return Result{}, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrProviderUnavailable)
	}

	start := time.Now()
	log.Printf("[diagnose] >>> START question=%q image=%dB", questionText, len(image))

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		imageMIME, base64.StdEncoding.EncodeToString(image))

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: doctorSystemPrompt},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: questionText},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
				},
			},
		},
	}

	ctxGPT, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctxGPT, openai.ChatCompletionRequest{
		Model:    openai.GPT4o,
		Messages: messages,
	})
	log.Printf("[diagnose][%.1fs] GPT done err=%v", time.Since(start).Seconds(), err)

	if err != nil {
		if isAuthError(err) {
			return Result{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: empty completion", ErrAnalysisFailed)
	}

	return parseResult(resp.Choices[0].Message.Content), nil
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status code: 401") ||
		strings.Contains(msg, "status code: 403")
}
