package kafka

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "kafka.yml")
	require.NoError(t, os.WriteFile(p, []byte(`schema_version: v1
brokers: [localhost:9092]
topics: [numbers]
group_id: seqx
commit_mode: e2e
checkpoint:
  commit_interval: 2s
`), 0o644))
	t.Setenv("SEQX_KAFKA__START_FROM", "oldest")
	t.Setenv("SEQX_KAFKA__BACKPRESSURE__CAPACITY", "64")

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	require.Equal(t, CommitE2E, cfg.CommitMode)
	require.Equal(t, 2*time.Second, cfg.Checkpoint.CommitInt)
	require.Equal(t, "oldest", cfg.StartFrom)
	require.Equal(t, int64(64), cfg.BackPressure.Capacity)
}

func TestLoadConfig_Defaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "kafka.yml")
	require.NoError(t, os.WriteFile(p, []byte(`brokers: [b:9092]
topics: [t]
group_id: g
commit_mode: sometimes
`), 0o644))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, CommitAuto, cfg.CommitMode)
	require.Equal(t, int64(30_000), cfg.BackPressure.Capacity)
	require.Equal(t, 5*time.Second, cfg.Checkpoint.CommitInt)
	require.Equal(t, "newest", cfg.StartFrom)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("schema_version: v3\n"), 0o644))
	_, err := LoadConfig(bad)
	require.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "absent.yml"))
	require.ErrorContains(t, err, "required")
}

func TestController(t *testing.T) {
	c := NewController(2)
	require.True(t, c.TryAcquire())
	require.True(t, c.TryAcquire())
	require.False(t, c.TryAcquire())
	require.Equal(t, 2, c.InFlight())

	c.Release(5)
	require.Equal(t, 0, c.InFlight())
}
