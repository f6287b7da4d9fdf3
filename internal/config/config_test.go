package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coinsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("NODE_NAME", "lobby")
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "lobby", c.Node.Name)
	assert.Equal(t, "none", c.Bus.Kind)
	assert.Equal(t, "json", c.Bus.Codec)
	assert.Equal(t, "noop", c.Storage.Driver)
	assert.Equal(t, "auto", c.Sync.RemoteDeletes)

	ttl, err := c.InflightTTL()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, ttl)
	tick, err := c.Tick()
	require.NoError(t, err)
	assert.Equal(t, time.Second, tick)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeYAML(t, `
app:
  env: prod
node:
  name: survival
bus:
  kind: redis
  channel: game-sync
storage:
  driver: badger
  path: /var/lib/coinsync
multipliers:
  snapshot_path: data/multipliers.jsonl
executors:
  - id: vip
    name: VIP kit
    cost: 250
    commands: ["give %player% diamond 1"]
`)
	t.Setenv("BUS_KIND", "MEMORY")
	t.Setenv("SYNC_REMOTE_DELETES", "never")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, "survival", c.Node.Name)
	assert.Equal(t, "memory", c.Bus.Kind)
	assert.Equal(t, "game-sync", c.Bus.Channel)
	assert.Equal(t, "badger", c.Storage.Driver)
	assert.Equal(t, "never", c.Sync.RemoteDeletes)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "multipliers.jsonl"), c.Multipliers.SnapshotPath)
	require.Len(t, c.Executors, 1)
	assert.Equal(t, 250.0, c.Executors[0].Cost)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"unknown bus":      "node: {name: a}\nbus: {kind: pigeon}\n",
		"relay no addrs":   "node: {name: a}\nbus: {kind: relay}\n",
		"postgres no dsn":  "node: {name: a}\nstorage: {driver: postgres}\n",
		"bad policy":       "node: {name: a}\nsync: {remote_deletes: maybe}\n",
		"bad tick":         "node: {name: a}\nmultipliers: {tick: soon}\n",
		"dup executor ids": "node: {name: a}\nexecutors: [{id: x}, {id: x}]\n",
		"bad codec":        "node: {name: a}\nbus: {codec: xml}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
