package console

import (
	"github.com/wardenhq/warden/pkg/protocol"
)

// RconCommandFactory creates rcon_command actions.
type RconCommandFactory struct {
	console protocol.Console
}

func NewRconCommandFactory(console protocol.Console) *RconCommandFactory {
	return &RconCommandFactory{console: console}
}

func (*RconCommandFactory) ID() string {
	return "rcon_command"
}

func (f *RconCommandFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewRconCommandAction(f.console, config)
}

// AdminBroadcastFactory creates admin_broadcast actions.
type AdminBroadcastFactory struct {
	console protocol.Console
}

func NewAdminBroadcastFactory(console protocol.Console) *AdminBroadcastFactory {
	return &AdminBroadcastFactory{console: console}
}

func (*AdminBroadcastFactory) ID() string {
	return "admin_broadcast"
}

func (f *AdminBroadcastFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAdminBroadcastAction(f.console, config)
}

// ChatMessageFactory creates chat_message actions.
type ChatMessageFactory struct {
	console protocol.Console
}

func NewChatMessageFactory(console protocol.Console) *ChatMessageFactory {
	return &ChatMessageFactory{console: console}
}

func (*ChatMessageFactory) ID() string {
	return "chat_message"
}

func (f *ChatMessageFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewChatMessageAction(f.console, config)
}

// KickPlayerFactory creates kick_player actions.
type KickPlayerFactory struct {
	console protocol.Console
}

func NewKickPlayerFactory(console protocol.Console) *KickPlayerFactory {
	return &KickPlayerFactory{console: console}
}

func (*KickPlayerFactory) ID() string {
	return "kick_player"
}

func (f *KickPlayerFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewKickPlayerAction(f.console, config)
}

// WarnPlayerFactory creates warn_player actions.
type WarnPlayerFactory struct {
	console protocol.Console
}

func NewWarnPlayerFactory(console protocol.Console) *WarnPlayerFactory {
	return &WarnPlayerFactory{console: console}
}

func (*WarnPlayerFactory) ID() string {
	return "warn_player"
}

func (f *WarnPlayerFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewWarnPlayerAction(f.console, config)
}
