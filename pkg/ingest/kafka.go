package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/wardenhq/warden/pkg/metrics"
)

// TopicSource consumes raw events from a watermill subscriber, typically the
// Kafka topic the game-log shippers produce to. Rejected messages are acked
// so a poison document never wedges the partition.
type TopicSource struct {
	topic      string
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewTopicSource(logger *slog.Logger, subscriber message.Subscriber, topic string) *TopicSource {
	return &TopicSource{
		topic:      topic,
		subscriber: subscriber,
		logger:     logger.With("module", "topic_source", "topic", topic),
	}
}

func (s *TopicSource) Start(ctx context.Context, emit Emit) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	s.logger.Info("Starting topic source")

	go s.consume(ctx, messages, emit)

	return nil
}

func (s *TopicSource) consume(ctx context.Context, messages <-chan *message.Message, emit Emit) {
	for msg := range messages {
		var raw rawEvent
		if err := json.Unmarshal(msg.Payload, &raw); err != nil {
			metrics.EventsRejected.Inc()
			s.logger.Warn("Dropping undecodable topic message", "message_id", msg.UUID, "error", err)
			msg.Ack()

			continue
		}

		event, err := Normalize(raw.EventType, raw.ServerID, raw.Payload)
		if err != nil {
			s.logger.Warn("Dropping rejected topic message",
				"message_id", msg.UUID,
				"event_type", raw.EventType,
				"error", err)
			msg.Ack()

			continue
		}

		if err := emit(ctx, event); err != nil {
			s.logger.Error("Failed to emit event, requeueing", "message_id", msg.UUID, "error", err)
			msg.Nack()

			continue
		}

		msg.Ack()
	}
}

func (s *TopicSource) Stop() error {
	return s.subscriber.Close()
}
