package protocol

import (
	"context"
	"time"
)

// BanRequest describes a ban issued by a workflow. Evidence carries the
// triggering event snapshot when the ban_player_with_evidence action is used.
type BanRequest struct {
	ServerID        string         `json:"server_id"`
	PlayerID        string         `json:"player_id"`
	Reason          string         `json:"reason"`
	DurationMinutes int            `json:"duration_minutes"` // 0 = permanent
	IssuedBy        string         `json:"issued_by"`
	Evidence        map[string]any `json:"evidence,omitempty"`
	IssuedAt        time.Time      `json:"issued_at"`
}

// Moderation is the external ban backend consumed by the ban actions.
type Moderation interface {
	Ban(ctx context.Context, req BanRequest) error
}
