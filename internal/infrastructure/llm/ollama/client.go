package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/resilience"
)

// Labeler runs a multimodal Ollama model as a single-label image classifier.
type Labeler struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Labeler)

func WithHTTPClient(client *http.Client) Option {
	return func(l *Labeler) {
		if client != nil {
			l.httpClient = client
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(l *Labeler) {
		l.executor = executor
	}
}

func New(baseURL, model string, opts ...Option) *Labeler {
	l := &Labeler{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Warmup checks that the configured model is present on the server.
func (l *Labeler) Warmup(ctx context.Context) error {
	var response struct {
		Details struct {
			Family string `json:"family"`
		} `json:"details"`
	}
	return l.run(ctx, "ollama.show", func(ctx context.Context) error {
		return l.postJSON(ctx, "/api/show", map[string]any{"model": l.model}, &response, "show")
	})
}

func (l *Labeler) Label(ctx context.Context, image []byte, mimeType string) (domain.Label, error) {
	if len(image) == 0 {
		return domain.Label{}, domain.WrapError(domain.ErrInvalidInput, "ollama label", errors.New("empty image"))
	}

	reqBody := map[string]any{
		"model":  l.model,
		"prompt": buildLabelPrompt(mimeType),
		"images": []string{base64.StdEncoding.EncodeToString(image)},
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	err := l.run(ctx, "ollama.generate", func(ctx context.Context) error {
		return l.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return domain.Label{}, err
	}
	return domain.ParseLabel(response.Response)
}

func (l *Labeler) run(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if l.executor != nil {
		err = l.executor.Execute(ctx, operation, call, classifyError)
	} else {
		err = call(ctx)
	}
	return asTemporary(operation, err)
}
