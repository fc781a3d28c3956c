// Package config holds the tool configuration shared by the backup, list and
// restore subcommands. Values come from a YAML file loaded through viper,
// overridden by command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cassandra-cluster-backup/internal/errors"
	"cassandra-cluster-backup/internal/remote"
	"cassandra-cluster-backup/internal/storage"
)

// Config is the root configuration document.
type Config struct {
	Storage storage.Config   `mapstructure:"storage" yaml:"storage"`
	SSH     remote.SSHConfig `mapstructure:"ssh" yaml:"ssh"`
	Cluster ClusterConfig    `mapstructure:"cluster" yaml:"cluster"`
	Logging LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ClusterConfig describes the Cassandra cluster and its node-local tooling.
type ClusterConfig struct {
	// BasePath is the object-store prefix under which snapshots live.
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
	// Hosts are the node identifiers participating in backups.
	Hosts []string `mapstructure:"hosts" yaml:"hosts"`
	// DataPath is the Cassandra data directory on each node.
	DataPath string `mapstructure:"data_path" yaml:"data_path"`
	// NodetoolPath overrides <bin_dir>/nodetool when set.
	NodetoolPath string `mapstructure:"nodetool_path" yaml:"nodetool_path"`
	// BinDir is the Cassandra binaries directory on each node.
	BinDir string `mapstructure:"bin_dir" yaml:"bin_dir"`
	// AgentPath is the path of the backup agent on each node.
	AgentPath string `mapstructure:"agent_path" yaml:"agent_path"`
	// AgentEnvPrefix is a command sourced before agent invocations, e.g. to
	// activate a virtualenv.
	AgentEnvPrefix string `mapstructure:"agent_env_prefix" yaml:"agent_env_prefix"`
	// PoolSize bounds the number of simultaneous connections to nodes.
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// Default returns a configuration with the standard Cassandra paths filled in.
func Default() *Config {
	return &Config{
		Storage: storage.Config{
			Provider: storage.ProviderS3,
			S3: &storage.S3Config{
				Region: "us-east-1",
			},
		},
		SSH: remote.SSHConfig{
			Port:    22,
			UseSudo: true,
		},
		Cluster: ClusterConfig{
			DataPath: "/var/lib/cassandra/data/",
			BinDir:   "/usr/bin",
			PoolSize: 12,
		},
		Logging: LoggingConfig{
			Level:  "normal",
			Format: "text",
		},
	}
}

// Validate checks the fields every subcommand depends on.
func (c *Config) Validate() error {
	if c.Cluster.BasePath == "" {
		return errors.NewConfiguration("cluster base_path cannot be empty", nil)
	}
	if c.Cluster.PoolSize < 1 {
		return errors.NewConfiguration("cluster pool_size must be at least 1", nil)
	}
	return c.Storage.Validate()
}

// Nodetool returns the nodetool invocation path.
func (c *ClusterConfig) Nodetool() string {
	if c.NodetoolPath != "" {
		return c.NodetoolPath
	}
	return c.BinDir + "/nodetool"
}

// Cqlsh returns the cqlsh invocation path used for schema dumps.
func (c *ClusterConfig) Cqlsh() string {
	return c.BinDir + "/cqlsh"
}

// Agent returns the backup agent invocation path.
func (c *ClusterConfig) Agent() string {
	if c.AgentPath != "" {
		return c.AgentPath
	}
	return "cassandra-backup-agent"
}

const fileHeader = `# cassandra-cluster-backup configuration.
# Values here are overridden by command line flags.
`

// WriteDefault writes a starter configuration file. Refuses to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.NewConfiguration(fmt.Sprintf("config file already exists: %s", path), nil)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.NewConfiguration("failed to marshal default configuration", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewConfiguration("failed to create config directory", err)
		}
	}

	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o600); err != nil {
		return errors.NewConfiguration("failed to write config file", err)
	}
	return nil
}
