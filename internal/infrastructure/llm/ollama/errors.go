package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/resilience"
)

// StatusError is a non-2xx reply from the Ollama API.
type StatusError struct {
	Operation string
	Code      int
	Status    string
	Body      string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ollama %s: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s: %s: %s", e.Operation, e.Status, body)
}

// ModelMissing reports whether the server does not have the requested model pulled.
func (e *StatusError) ModelMissing() bool {
	return e.Code == http.StatusNotFound
}

func (e *StatusError) retryable() bool {
	switch e.Code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func classifyError(err error) resilience.ErrorClassification {
	var statusErr *StatusError
	var netErr net.Error
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.As(err, &statusErr):
		// A missing model or a rejected image says nothing about server health.
		retry := statusErr.retryable()
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: retry}
	case errors.As(err, &netErr):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

// asTemporary marks errors worth retrying later as domain.ErrTemporary.
func asTemporary(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
