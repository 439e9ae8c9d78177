package cmd

import (
	"log/slog"

	"github.com/wardenhq/warden/pkg/actions/console"
	"github.com/wardenhq/warden/pkg/actions/discord"
	"github.com/wardenhq/warden/pkg/actions/httprequest"
	"github.com/wardenhq/warden/pkg/actions/logmessage"
	"github.com/wardenhq/warden/pkg/actions/luascript"
	"github.com/wardenhq/warden/pkg/actions/moderation"
	"github.com/wardenhq/warden/pkg/actions/setvariable"
	"github.com/wardenhq/warden/pkg/actions/webhook"
	"github.com/wardenhq/warden/pkg/kv"
	"github.com/wardenhq/warden/pkg/protocol"
	"github.com/wardenhq/warden/pkg/registry"
)

// NewRegistry builds the action registry with every native action wired to
// its capabilities.
func NewRegistry(
	logger *slog.Logger,
	gameConsole protocol.Console,
	banBackend protocol.Moderation,
	sink protocol.MessageSink,
	store kv.Store,
) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(console.NewRconCommandFactory(gameConsole))
	reg.RegisterAction(console.NewAdminBroadcastFactory(gameConsole))
	reg.RegisterAction(console.NewChatMessageFactory(gameConsole))
	reg.RegisterAction(console.NewKickPlayerFactory(gameConsole))
	reg.RegisterAction(console.NewWarnPlayerFactory(gameConsole))

	reg.RegisterAction(moderation.NewBanPlayerFactory(banBackend))
	reg.RegisterAction(moderation.NewBanPlayerWithEvidenceFactory(banBackend))

	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(webhook.NewActionFactory())
	reg.RegisterAction(discord.NewActionFactory())
	reg.RegisterAction(setvariable.NewActionFactory())

	reg.RegisterAction(logmessage.NewActionFactory(sink))
	reg.RegisterAction(luascript.NewActionFactory(sink, store))

	return reg
}
