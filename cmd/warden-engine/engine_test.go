package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/channels/gochannel"
	"github.com/wardenhq/warden/pkg/cmd"
	"github.com/wardenhq/warden/pkg/eventbus"
	"github.com/wardenhq/warden/pkg/kv"
	"github.com/wardenhq/warden/pkg/persistence/file"
)

func writeSchedules(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "schedules.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadSchedulesParsesAndValidates(t *testing.T) {
	logger := slog.Default()

	path := writeSchedules(t, `[
		{"name": "seed-announce", "cron_expr": "*/5 * * * *", "server_id": "server-1", "payload": {"message": "join us"}}
	]`)

	source, err := loadSchedules(logger, path)
	require.NoError(t, err)
	assert.NotNil(t, source)

	bad := writeSchedules(t, `[{"name": "broken", "cron_expr": "not-cron", "server_id": "server-1"}]`)

	_, err = loadSchedules(logger, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewEngineSelectsConfiguredSources(t *testing.T) {
	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())
	store := kv.NewMemoryStore()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	reg := cmd.NewRegistry(logger, cmd.NewConsole(logger, ""), cmd.NewModeration(logger, ""), cmd.NewMessageSink(p), store)

	bare, err := NewEngine("engine-test", logger, p, bus, reg, EngineConfig{})
	require.NoError(t, err)
	assert.Empty(t, bare.sources)

	scheduled, err := NewEngine("engine-test", logger, p, bus, reg, EngineConfig{
		SchedulesFile: writeSchedules(t, `[{"name": "motd", "cron_expr": "0 * * * *", "server_id": "server-1"}]`),
	})
	require.NoError(t, err)
	assert.Len(t, scheduled.sources, 1)
}
