// Package events announces finished stages on NATS so downstream consumers,
// such as dashboard refreshers, can react.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"jobmart/common/telemetry"
	"jobmart/services/pipeline/internal/errors"
)

var tracer = telemetry.GetTracer("jobmart/pipeline/events")

const StageCompletedSubject = "jobmart.stage.completed"

type StageCompleted struct {
	RunID      string         `json:"run_id"`
	Stage      string         `json:"stage"`
	Tables     map[string]int `json:"tables"`
	DurationMS int64          `json:"duration_ms"`
	FinishedAt time.Time      `json:"finished_at"`
}

type Publisher interface {
	PublishStageCompleted(ctx context.Context, event StageCompleted) error
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewPublisher connects to NATS. An empty url yields a publisher that
// drops every event.
func NewPublisher(url string, connTimeout time.Duration, logger *zap.Logger) (Publisher, error) {
	if url == "" {
		logger.Info("NATS_URL not set, stage events are disabled")
		return noopPublisher{}, nil
	}

	opts := []nats.Option{
		nats.Name("jobmart-pipeline"),
		nats.Timeout(connTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.Unavailable("connecting to NATS", err)
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

func (p *natsPublisher) PublishStageCompleted(ctx context.Context, event StageCompleted) error {
	_, span := tracer.Start(ctx, "PublishStageCompleted")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling stage event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", StageCompletedSubject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(StageCompletedSubject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish stage event",
			zap.String("run_id", event.RunID),
			zap.String("stage", event.Stage),
			zap.Error(err))
		return errors.Unavailable("publishing to NATS", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.Unavailable("flushing NATS connection", err)
	}

	p.logger.Debug("published stage event",
		zap.String("run_id", event.RunID),
		zap.String("stage", event.Stage),
		zap.String("subject", StageCompletedSubject))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishStageCompleted(context.Context, StageCompleted) error { return nil }

func (noopPublisher) Close() {}
