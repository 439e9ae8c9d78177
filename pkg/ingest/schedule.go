package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wardenhq/warden/pkg/events"
)

// Schedule fires a SCHEDULED_TIME event for one server on a cron expression.
// Extra payload fields are merged into each emitted event.
type Schedule struct {
	Name     string         `json:"name"`
	CronExpr string         `json:"cron_expr"`
	ServerID string         `json:"server_id"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// ScheduleSource emits SCHEDULED_TIME events so workflows can run periodic
// maintenance (seeding announcements, stale-ban sweeps) without an external
// feed.
type ScheduleSource struct {
	schedules []Schedule
	cron      *cron.Cron
	logger    *slog.Logger
}

func NewScheduleSource(logger *slog.Logger) *ScheduleSource {
	return &ScheduleSource{
		logger: logger.With("module", "schedule_source"),
	}
}

// Add registers one schedule. The cron expression is validated immediately.
func (s *ScheduleSource) Add(schedule Schedule) error {
	if schedule.ServerID == "" {
		return errors.New("schedule server id is required")
	}

	if _, err := cron.ParseStandard(schedule.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule.CronExpr, err)
	}

	s.schedules = append(s.schedules, schedule)

	return nil
}

func (s *ScheduleSource) Start(ctx context.Context, emit Emit) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	for _, schedule := range s.schedules {
		_, err := s.cron.AddFunc(schedule.CronExpr, s.tick(ctx, schedule, emit))
		if err != nil {
			return fmt.Errorf("failed to schedule %q: %w", schedule.Name, err)
		}

		s.logger.Info("Registered schedule",
			"name", schedule.Name,
			"cron", schedule.CronExpr,
			"server_id", schedule.ServerID)
	}

	s.cron.Start()

	return nil
}

func (s *ScheduleSource) tick(ctx context.Context, schedule Schedule, emit Emit) func() {
	return func() {
		payload := map[string]any{
			"schedule": schedule.Name,
			"cron":     schedule.CronExpr,
			"fired_at": time.Now().UTC().Format(time.RFC3339),
		}

		for key, value := range schedule.Payload {
			payload[key] = value
		}

		event, err := Normalize(events.EventScheduledTime, schedule.ServerID, payload)
		if err != nil {
			s.logger.Error("Failed to build scheduled event", "schedule", schedule.Name, "error", err)

			return
		}

		if err := emit(ctx, event); err != nil {
			s.logger.Error("Failed to emit scheduled event", "schedule", schedule.Name, "error", err)
		}
	}
}

func (s *ScheduleSource) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	return nil
}
