// Package ingest turns raw game-server event feeds into normalized trigger
// events. Each source validates and normalizes upstream payloads before
// handing them to the emit callback; nothing malformed reaches the engine.
package ingest

import (
	"context"

	"github.com/wardenhq/warden/pkg/events"
)

// Emit delivers one normalized event downstream, usually onto the event bus.
type Emit func(ctx context.Context, event events.TriggerEvent) error

// Source is a long-running feed of game events.
type Source interface {
	// Start begins consuming and calls emit for every normalized event. It
	// returns after the consumer is running; ctx cancellation stops it.
	Start(ctx context.Context, emit Emit) error

	Stop() error
}
