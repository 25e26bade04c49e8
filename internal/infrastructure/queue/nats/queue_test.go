package nats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

func testQueue() *Queue {
	return &Queue{logger: slog.New(slog.NewTextHandler(io.Discard, nil)), now: time.Now}
}

func TestDispatchDecodesEvent(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	payload, err := encodeEvent(domain.AnalysisEvent{AnalysisID: "a-1", MediaKind: domain.MediaVideo, OccurredAt: at})
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}

	var got domain.AnalysisEvent
	testQueue().dispatch(context.Background(), payload, func(_ context.Context, event domain.AnalysisEvent) error {
		got = event
		return nil
	})
	if got.AnalysisID != "a-1" || got.MediaKind != domain.MediaVideo || !got.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestDispatchDropsMalformedPayload(t *testing.T) {
	called := false
	handler := func(context.Context, domain.AnalysisEvent) error {
		called = true
		return nil
	}

	q := testQueue()
	q.dispatch(context.Background(), []byte("plain-document-id"), handler)

	empty, _ := encodeEvent(domain.AnalysisEvent{})
	q.dispatch(context.Background(), empty, handler)

	if called {
		t.Fatalf("handler must not run for malformed payloads")
	}
}

func TestDispatchProcessesMessagesWhileDraining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	payload, _ := encodeEvent(domain.AnalysisEvent{AnalysisID: "a-2"})

	var got string
	testQueue().dispatch(ctx, payload, func(handlerCtx context.Context, event domain.AnalysisEvent) error {
		if err := handlerCtx.Err(); err != nil {
			t.Fatalf("handler context already done: %v", err)
		}
		got = event.AnalysisID
		return nil
	})
	if got != "a-2" {
		t.Fatalf("expected drained message to be processed, got %q", got)
	}
}

func TestWaitDrained(t *testing.T) {
	polls := 0
	closesAfterThree := func() bool {
		polls++
		return polls < 3
	}
	if !waitDrained(closesAfterThree, time.Second) {
		t.Fatalf("expected drain to complete")
	}
	if waitDrained(func() bool { return true }, 10*time.Millisecond) {
		t.Fatalf("expected timeout for a subscription that never closes")
	}
}

func TestDecodeEventRejectsMissingID(t *testing.T) {
	payload, _ := encodeEvent(domain.AnalysisEvent{MediaKind: domain.MediaAudio})
	if _, err := decodeEvent(payload); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestPublishCompletedWithoutSubjectIsNoop(t *testing.T) {
	q := testQueue()
	if err := q.PublishAnalysisCompleted(context.Background(), &domain.Analysis{ID: "a-3"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(errors.Join(errors.New("publish"), nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(nats.ErrBadSubject); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("bad subject must not be temporary")
	}
}
