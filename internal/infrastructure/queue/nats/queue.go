package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/resilience"
)

const (
	workerGroup  = "workers"
	drainTimeout = 30 * time.Second
	drainPoll    = 50 * time.Millisecond
)

type Subjects struct {
	Requested string
	Completed string
}

type Queue struct {
	conn     *nats.Conn
	subjects Subjects
	executor *resilience.Executor
	logger   *slog.Logger
	now      func() time.Time
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string, subjects Subjects, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("deepfake-scan"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subjects: subjects,
		executor: options.ResilienceExecutor,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalysisRequested(ctx context.Context, analysisID string) error {
	return q.publish(ctx, q.subjects.Requested, domain.AnalysisEvent{
		AnalysisID: analysisID,
		OccurredAt: q.now().UTC(),
	})
}

// PublishAnalysisCompleted is a no-op when no completion subject is configured.
func (q *Queue) PublishAnalysisCompleted(ctx context.Context, analysis *domain.Analysis) error {
	if q.subjects.Completed == "" || analysis == nil {
		return nil
	}
	event := domain.AnalysisEvent{
		AnalysisID: analysis.ID,
		MediaKind:  analysis.MediaKind,
		OccurredAt: q.now().UTC(),
	}
	if analysis.Result != nil {
		event.IsDeepfake = analysis.Result.IsDeepfake
	}
	return q.publish(ctx, q.subjects.Completed, event)
}

func (q *Queue) publish(ctx context.Context, subject string, event domain.AnalysisEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

func (q *Queue) SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisEvent) error) error {
	sub, err := q.conn.QueueSubscribe(q.subjects.Requested, workerGroup, func(msg *nats.Msg) {
		q.dispatch(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if !waitDrained(sub.IsValid, drainTimeout) {
		q.logger.Warn("worker_drain_timeout", "subject", q.subjects.Requested, "timeout", drainTimeout)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// dispatch runs the handler detached from ctx cancellation. Core NATS does
// not redeliver, so messages buffered when shutdown starts are still processed
// while the subscription drains.
func (q *Queue) dispatch(ctx context.Context, data []byte, handler func(context.Context, domain.AnalysisEvent) error) {
	event, err := decodeEvent(data)
	if err != nil {
		q.logger.Error("worker_bad_message", "error", err, "size", len(data))
		return
	}
	if ctx.Err() != nil {
		q.logger.Info("worker_draining_message", "analysis_id", event.AnalysisID)
	}

	handlerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	if err := handler(handlerCtx, event); err != nil {
		q.logger.Error("worker_handler_error", "analysis_id", event.AnalysisID, "error", err)
	}
}

// waitDrained polls until the drained subscription is closed or timeout passes.
func waitDrained(valid func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for valid() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(drainPoll)
	}
	return true
}
