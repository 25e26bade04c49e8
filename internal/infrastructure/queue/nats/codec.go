package nats

import (
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

func encodeEvent(event domain.AnalysisEvent) ([]byte, error) {
	payload, err := msgpack.Marshal(&event)
	if err != nil {
		return nil, fmt.Errorf("encode analysis event: %w", err)
	}
	return payload, nil
}

func decodeEvent(data []byte) (domain.AnalysisEvent, error) {
	var event domain.AnalysisEvent
	if err := msgpack.Unmarshal(data, &event); err != nil {
		return event, domain.WrapError(domain.ErrInvalidInput, "decode analysis event", err)
	}
	if strings.TrimSpace(event.AnalysisID) == "" {
		return event, domain.WrapError(domain.ErrInvalidInput, "decode analysis event", fmt.Errorf("missing analysis id"))
	}
	return event, nil
}
