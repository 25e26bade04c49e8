package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/resilience"
)

const labelPrompt = `Name the single most likely class of this image.
Return strict JSON object with keys:
label (string, short lowercase class name), score (number from 0 to 1, probability of that class).`

// Labeler classifies images through an OpenAI-compatible vision model.
type Labeler struct {
	client   *goopenai.Client
	model    string
	executor *resilience.Executor
}

func New(apiKey, baseURL, model string, executor *resilience.Executor) (*Labeler, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	clientConfig := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = goopenai.GPT4oMini
	}
	return &Labeler{
		client:   goopenai.NewClientWithConfig(clientConfig),
		model:    model,
		executor: executor,
	}, nil
}

func (l *Labeler) Warmup(ctx context.Context) error {
	return l.run(ctx, "openai.model", func(ctx context.Context) error {
		if _, err := l.client.GetModel(ctx, l.model); err != nil {
			return fmt.Errorf("openai get model %s: %w", l.model, err)
		}
		return nil
	})
}

func (l *Labeler) Label(ctx context.Context, image []byte, mimeType string) (domain.Label, error) {
	if len(image) == 0 {
		return domain.Label{}, domain.WrapError(domain.ErrInvalidInput, "openai label", errors.New("empty image"))
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	req := goopenai.ChatCompletionRequest{
		Model: l.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: labelPrompt},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: goopenai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		MaxTokens:   60,
		Temperature: 0,
	}

	var content string
	err := l.run(ctx, "openai.chat", func(ctx context.Context) error {
		resp, err := l.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("openai chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("openai chat completion: no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return domain.Label{}, err
	}
	return domain.ParseLabel(content)
}

func (l *Labeler) run(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if l.executor != nil {
		err = l.executor.Execute(ctx, operation, call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err == nil {
		return nil
	}
	if class := classifyOpenAIError(err); class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{}
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		retryable := reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
