package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

var tracer = otel.Tracer("leadanalyzer/events")

// Publisher emits lead lifecycle events.
type Publisher interface {
	PublishLeadAnalyzed(ctx context.Context, evt LeadAnalyzedV1) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by conversation id.
type KafkaPublisher struct {
	writer messageWriter
	logger *logging.Logger
}

// NewKafkaPublisher returns nil when no brokers are configured.
func NewKafkaPublisher(brokers []string, topic string, logger *logging.Logger) *KafkaPublisher {
	if len(brokers) == 0 {
		return nil
	}
	if topic == "" {
		topic = TopicLeadAnalyzed
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

func newKafkaPublisher(writer messageWriter, logger *logging.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// PublishLeadAnalyzed sends evt, filling in EventID and OccurredAt when unset.
func (p *KafkaPublisher) PublishLeadAnalyzed(ctx context.Context, evt LeadAnalyzedV1) error {
	if p == nil || p.writer == nil {
		return errors.New("events: kafka writer not configured")
	}
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if evt.Signals == nil {
		evt.Signals = []string{}
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal lead analyzed: %w", err)
	}

	ctx, span := tracer.Start(ctx, "events.kafka.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("leadanalyzer.org_id", evt.OrgID),
		attribute.String("leadanalyzer.conversation_id", evt.ConversationID),
	)

	msg := kafka.Message{
		Key:   []byte(evt.ConversationID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(TopicLeadAnalyzed)},
			{Key: "org_id", Value: []byte(evt.OrgID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("events: write lead analyzed: %w", err)
	}

	p.logger.Debug("lead analyzed event published", "event_id", evt.EventID, "org_id", evt.OrgID, "conversation_id", evt.ConversationID)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// LogPublisher only logs events; used when Kafka is not configured.
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishLeadAnalyzed(_ context.Context, evt LeadAnalyzedV1) error {
	p.logger.Debug("lead analyzed", "org_id", evt.OrgID, "conversation_id", evt.ConversationID, "is_hot", evt.IsHot, "score", evt.Score)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
