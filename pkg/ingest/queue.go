package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/wardenhq/warden/pkg/metrics"
)

// rawEvent is the wire shape every ingest edge accepts.
type rawEvent struct {
	EventType string         `json:"event_type"`
	ServerID  string         `json:"server_id"`
	Payload   map[string]any `json:"payload"`
}

// QueueSource pops raw events from a Redis list. Log shippers on the game
// hosts push one JSON document per event; the source drains the list with a
// blocking pop so an idle queue costs nothing.
type QueueSource struct {
	queue  string
	client *redis.Client
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewQueueSource(logger *slog.Logger, redisURL, queue string) (*QueueSource, error) {
	if queue == "" {
		return nil, errors.New("queue name is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &QueueSource{
		queue:  queue,
		client: redis.NewClient(opts),
		stopCh: make(chan struct{}),
		logger: logger.With("module", "queue_source", "queue", queue),
	}, nil
}

func (s *QueueSource) Start(ctx context.Context, emit Emit) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	s.logger.Info("Starting queue source")

	s.wg.Add(1)

	go s.consume(ctx, emit)

	return nil
}

func (s *QueueSource) consume(ctx context.Context, emit Emit) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			s.logger.Info("Queue source stopped")

			return
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping queue source")

			return
		default:
			if err := s.processMessage(ctx, emit); err != nil {
				s.logger.Error("Error processing queue message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (s *QueueSource) processMessage(ctx context.Context, emit Emit) error {
	result, err := s.client.BLPop(ctx, 1*time.Second, s.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var raw rawEvent
	if err := json.Unmarshal([]byte(result[1]), &raw); err != nil {
		metrics.EventsRejected.Inc()
		s.logger.Warn("Dropping undecodable queue message", "error", err)

		return nil
	}

	event, err := Normalize(raw.EventType, raw.ServerID, raw.Payload)
	if err != nil {
		s.logger.Warn("Dropping rejected queue message",
			"event_type", raw.EventType,
			"server_id", raw.ServerID,
			"error", err)

		return nil
	}

	return emit(ctx, event)
}

func (s *QueueSource) Stop() error {
	close(s.stopCh)
	s.wg.Wait()

	return s.client.Close()
}
