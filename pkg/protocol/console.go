package protocol

import "context"

// Console is the abstract game-server command capability backing the
// rcon_command, admin_broadcast, chat_message, kick_player and warn_player
// actions. The wire protocol behind it is out of scope; implementations are
// injected per deployment.
type Console interface {
	// Exec runs a raw console command on a server and returns its response.
	Exec(ctx context.Context, serverID, command string) (string, error)

	// Broadcast shows a message to every connected player.
	Broadcast(ctx context.Context, serverID, message string) error

	// Message sends a chat message to one player.
	Message(ctx context.Context, serverID, playerID, message string) error

	// Warn issues an on-screen warning to one player.
	Warn(ctx context.Context, serverID, playerID, reason string) error

	// Kick removes a player from the server.
	Kick(ctx context.Context, serverID, playerID, reason string) error
}
