package moderation

import (
	"github.com/wardenhq/warden/pkg/protocol"
)

// BanPlayerFactory creates ban_player actions.
type BanPlayerFactory struct {
	moderation protocol.Moderation
}

func NewBanPlayerFactory(moderation protocol.Moderation) *BanPlayerFactory {
	return &BanPlayerFactory{moderation: moderation}
}

func (*BanPlayerFactory) ID() string {
	return "ban_player"
}

func (f *BanPlayerFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewBanPlayerAction(f.moderation, config, false)
}

// BanPlayerWithEvidenceFactory creates ban_player_with_evidence actions,
// which attach the triggering event payload as ban evidence.
type BanPlayerWithEvidenceFactory struct {
	moderation protocol.Moderation
}

func NewBanPlayerWithEvidenceFactory(moderation protocol.Moderation) *BanPlayerWithEvidenceFactory {
	return &BanPlayerWithEvidenceFactory{moderation: moderation}
}

func (*BanPlayerWithEvidenceFactory) ID() string {
	return "ban_player_with_evidence"
}

func (f *BanPlayerWithEvidenceFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewBanPlayerAction(f.moderation, config, true)
}
