package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"cassandra-cluster-backup/internal/storage"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, storage.ProviderS3, cfg.Storage.Provider)
	assert.Equal(t, "/var/lib/cassandra/data/", cfg.Cluster.DataPath)
	assert.Equal(t, 12, cfg.Cluster.PoolSize)
	assert.True(t, cfg.SSH.UseSudo)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Cluster.BasePath = "prod/backups"
		cfg.Storage.S3.Bucket = "my-bucket"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}, wantErr: false},
		{name: "missing base path", mutate: func(c *Config) { c.Cluster.BasePath = "" }, wantErr: true},
		{name: "zero pool size", mutate: func(c *Config) { c.Cluster.PoolSize = 0 }, wantErr: true},
		{name: "missing bucket", mutate: func(c *Config) { c.Storage.S3.Bucket = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClusterConfig_ToolPaths(t *testing.T) {
	cluster := ClusterConfig{BinDir: "/opt/cassandra/bin"}
	assert.Equal(t, "/opt/cassandra/bin/nodetool", cluster.Nodetool())
	assert.Equal(t, "/opt/cassandra/bin/cqlsh", cluster.Cqlsh())
	assert.Equal(t, "cassandra-backup-agent", cluster.Agent())

	cluster.NodetoolPath = "/usr/local/bin/nodetool"
	cluster.AgentPath = "/opt/agent"
	assert.Equal(t, "/usr/local/bin/nodetool", cluster.Nodetool())
	assert.Equal(t, "/opt/agent", cluster.Agent())
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, storage.ProviderS3, cfg.Storage.Provider)
	assert.Equal(t, 12, cfg.Cluster.PoolSize)

	// Refuses to overwrite an existing file.
	assert.Error(t, WriteDefault(path))
}
