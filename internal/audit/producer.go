package audit

import (
	"context"
	"log/slog"
	"time"

	"payment-service/internal/config"
	"payment-service/internal/db"
	"payment-service/internal/logcontext"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

var (
	// producer batch metrics
	producerErrorFetchingCounter = metrics.GetOrCreateCounter(`audit_producer_total{result="fetching_failed"}`)
	producerErrorKafkaCounter    = metrics.GetOrCreateCounter(`audit_producer_total{result="publish_failed"}`)
	producerErrorUpdateCounter   = metrics.GetOrCreateCounter(`audit_producer_total{result="db_update_failed"}`)
	producerSuccessCounter       = metrics.GetOrCreateCounter(`audit_producer_total{result="success"}`)

	producerProcessDurationHistogram = metrics.GetOrCreateHistogram(`audit_producer_duration_milliseconds`)

	// producer per event metrics
	producerEventsPublishedCounter   = metrics.GetOrCreateCounter(`audit_producer_events_total{result="published"}`)
	producerEventsMaxAttemptsCounter = metrics.GetOrCreateCounter(`audit_producer_events_total{result="max_attempts_reached"}`)
	producerEventsRescheduledCounter = metrics.GetOrCreateCounter(`audit_producer_events_total{result="rescheduled"}`)
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Producer moves outbox rows to the audit topic.
type Producer struct {
	repo               *db.AuditRepository
	writer             MessageWriter
	pollingInterval    time.Duration
	fetchSize          int
	retryDelay         time.Duration
	maxPublishAttempts int
	logger             *slog.Logger
}

func NewProducer(repo *db.AuditRepository, writer MessageWriter, cfg config.AuditProducer, logger *slog.Logger) *Producer {
	return &Producer{
		repo:               repo,
		writer:             writer,
		pollingInterval:    time.Duration(cfg.PollingIntervalMs) * time.Millisecond,
		fetchSize:          cfg.FetchSize,
		retryDelay:         time.Duration(cfg.RescheduleDelayMs) * time.Millisecond,
		maxPublishAttempts: cfg.MaxPublishAttempts,
		logger:             logger,
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.pollingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.process(ctx)
			case <-ctx.Done():
				p.logger.InfoContext(ctx, "Context done, stopping audit producer")
				return
			}
		}
	}()
}

func (p *Producer) process(ctx context.Context) {
	startTime := time.Now()
	defer func() {
		producerProcessDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	ctx = logcontext.AppendCtx(ctx, slog.String("runId", uuid.NewString()))

	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error starting transaction", "error", err)
		producerErrorFetchingCounter.Inc()
		return
	}
	defer tx.Rollback(ctx)

	events, err := p.repo.GetUnpublished(ctx, tx, p.fetchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error fetching unpublished audit events", "error", err)
		producerErrorFetchingCounter.Inc()
		return
	}

	if len(events) == 0 {
		p.logger.DebugContext(ctx, "No unpublished audit events found")
		producerSuccessCounter.Inc()
		return
	}

	err = p.writer.WriteMessages(ctx, toKafkaMessages(events)...)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error writing audit events to Kafka", "error", err)
		producerErrorKafkaCounter.Inc()
	}

	now := time.Now()
	for _, event := range events {
		eventCtx := logcontext.AppendCtx(ctx, slog.String("auditId", event.ID.String()))

		event.PublishAttempts++

		if err != nil {
			errMsg := err.Error()
			event.Error = &errMsg

			if event.PublishAttempts >= p.maxPublishAttempts {
				p.logger.WarnContext(eventCtx, "Max publish attempts reached for audit event")
				event.ScheduledAt = nil
				producerEventsMaxAttemptsCounter.Inc()
			} else {
				scheduledAt := now.Add(time.Duration(event.PublishAttempts) * p.retryDelay)
				event.ScheduledAt = &scheduledAt
				producerEventsRescheduledCounter.Inc()
			}
		} else {
			event.ScheduledAt = nil
			event.PublishedAt = &now
			event.Error = nil
			producerEventsPublishedCounter.Inc()
		}

		if err := p.repo.Update(eventCtx, tx, event); err != nil {
			p.logger.ErrorContext(eventCtx, "Error updating audit event", "error", err)
			producerErrorUpdateCounter.Inc()
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Error committing transaction", "error", err)
		producerErrorUpdateCounter.Inc()
		return
	}

	p.logger.InfoContext(ctx, "Audit events processed", "count", len(events))
	producerSuccessCounter.Inc()
}

func toKafkaMessages(events []*db.AuditEventEntity) []kafka.Message {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.FlowID.String()),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(e.Type)},
				{Key: "step", Value: []byte(e.Step)},
			},
		})
	}
	return msgs
}
