package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"cassandra-cluster-backup/internal/config"
	"cassandra-cluster-backup/internal/logging"
	"cassandra-cluster-backup/internal/remote"
	"cassandra-cluster-backup/internal/snapshot"
	"cassandra-cluster-backup/internal/storage"
)

var cfgFile string

// CLI flag variables
var (
	// Storage flags
	storageProvider string
	bucketName      string
	awsRegion       string
	awsAccessKey    string
	awsSecretKey    string
	s3SSE           bool

	// Cluster flags
	basePath       string
	hosts          []string
	dataPath       string
	nodetoolPath   string
	binDir         string
	agentPath      string
	agentEnvPrefix string
	poolSize       int

	// SSH flags
	sshUser         string
	sshPort         uint
	sshKeyFile      string
	sshPassword     string
	sshAskPassword  bool
	noSudo          bool
	insecureHostKey bool

	// Operation flags
	verbose bool
	quiet   bool
	logFile string
	logJSON bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cassandra-cluster-backup",
	Short: "Backup and restore Cassandra clusters through an object store",
	Long: `cassandra-cluster-backup orchestrates cluster-wide Cassandra backups.

It connects to every node over SSH, drives nodetool and the node-local backup
agent, and stores the resulting snapshot data and metadata in S3, Azure Blob
Storage, Google Cloud Storage, or a local directory. Restores merge the stored
files per table and stream them into a target cluster with sstableloader.

Examples:
  # Take a backup (extends the latest compatible snapshot incrementally)
  cassandra-cluster-backup --config cluster.yaml backup

  # Force a brand-new snapshot and drop the old node-local ones
  cassandra-cluster-backup --config cluster.yaml backup --new-snapshot --delete-old-snapshots

  # List stored snapshots
  cassandra-cluster-backup --config cluster.yaml list

  # Restore a keyspace from the latest snapshot
  cassandra-cluster-backup --config cluster.yaml restore --keyspace ks1 --target-hosts 10.0.0.1`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./cassandra-cluster-backup.yaml)")

	// Storage flags
	rootCmd.PersistentFlags().StringVar(&storageProvider, "storage-provider", string(storage.ProviderS3),
		"object store backend ("+providerNames()+")")
	rootCmd.PersistentFlags().StringVar(&bucketName, "bucket", "", "bucket or container holding the backups")
	rootCmd.PersistentFlags().StringVar(&awsRegion, "region", "us-east-1", "S3 bucket region")
	rootCmd.PersistentFlags().StringVar(&awsAccessKey, "access-key", "", "S3 access key (defaults to the AWS credential chain)")
	rootCmd.PersistentFlags().StringVar(&awsSecretKey, "secret-key", "", "S3 secret key")
	rootCmd.PersistentFlags().BoolVar(&s3SSE, "sse", false, "enable S3 server side encryption")

	// Cluster flags
	rootCmd.PersistentFlags().StringVar(&basePath, "base-path", "", "object store prefix under which snapshots live")
	rootCmd.PersistentFlags().StringSliceVar(&hosts, "hosts", nil, "cluster node hostnames")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data-path", "/var/lib/cassandra/data/", "Cassandra data directory on the nodes")
	rootCmd.PersistentFlags().StringVar(&nodetoolPath, "nodetool-path", "", "nodetool path on the nodes (overrides --bin-dir)")
	rootCmd.PersistentFlags().StringVar(&binDir, "bin-dir", "/usr/bin", "Cassandra binaries directory on the nodes")
	rootCmd.PersistentFlags().StringVar(&agentPath, "agent-path", "", "backup agent path on the nodes")
	rootCmd.PersistentFlags().StringVar(&agentEnvPrefix, "agent-env-prefix", "", "command sourced before agent invocations")
	rootCmd.PersistentFlags().IntVar(&poolSize, "pool-size", 12, "maximum simultaneous node connections")

	// SSH flags
	rootCmd.PersistentFlags().StringVar(&sshUser, "ssh-user", "", "SSH user connecting to the nodes")
	rootCmd.PersistentFlags().UintVar(&sshPort, "ssh-port", 22, "SSH port on the nodes")
	rootCmd.PersistentFlags().StringVar(&sshKeyFile, "ssh-key", "", "SSH private key file")
	rootCmd.PersistentFlags().StringVar(&sshPassword, "ssh-password", "", "SSH password (prefer --ssh-ask-password)")
	rootCmd.PersistentFlags().BoolVar(&sshAskPassword, "ssh-ask-password", false, "prompt for the SSH password")
	rootCmd.PersistentFlags().BoolVar(&noSudo, "no-sudo", false, "run remote commands without sudo")
	rootCmd.PersistentFlags().BoolVar(&insecureHostKey, "insecure-host-key", false, "skip known_hosts verification")

	// Operation flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")

	// Bind flags to viper
	viper.BindPFlag("storage.provider", rootCmd.PersistentFlags().Lookup("storage-provider"))
	viper.BindPFlag("storage.s3.bucket", rootCmd.PersistentFlags().Lookup("bucket"))
	viper.BindPFlag("storage.s3.region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("storage.s3.access_key", rootCmd.PersistentFlags().Lookup("access-key"))
	viper.BindPFlag("storage.s3.secret_key", rootCmd.PersistentFlags().Lookup("secret-key"))
	viper.BindPFlag("storage.s3.sse", rootCmd.PersistentFlags().Lookup("sse"))

	viper.BindPFlag("cluster.base_path", rootCmd.PersistentFlags().Lookup("base-path"))
	viper.BindPFlag("cluster.hosts", rootCmd.PersistentFlags().Lookup("hosts"))
	viper.BindPFlag("cluster.data_path", rootCmd.PersistentFlags().Lookup("data-path"))
	viper.BindPFlag("cluster.nodetool_path", rootCmd.PersistentFlags().Lookup("nodetool-path"))
	viper.BindPFlag("cluster.bin_dir", rootCmd.PersistentFlags().Lookup("bin-dir"))
	viper.BindPFlag("cluster.agent_path", rootCmd.PersistentFlags().Lookup("agent-path"))
	viper.BindPFlag("cluster.agent_env_prefix", rootCmd.PersistentFlags().Lookup("agent-env-prefix"))
	viper.BindPFlag("cluster.pool_size", rootCmd.PersistentFlags().Lookup("pool-size"))

	viper.BindPFlag("ssh.user", rootCmd.PersistentFlags().Lookup("ssh-user"))
	viper.BindPFlag("ssh.port", rootCmd.PersistentFlags().Lookup("ssh-port"))
	viper.BindPFlag("ssh.key_file", rootCmd.PersistentFlags().Lookup("ssh-key"))
	viper.BindPFlag("ssh.password", rootCmd.PersistentFlags().Lookup("ssh-password"))
	viper.BindPFlag("ssh.insecure_host_key", rootCmd.PersistentFlags().Lookup("insecure-host-key"))

	viper.BindPFlag("logging.log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// providerNames lists the storage backends for the flag help.
func providerNames() string {
	names := make([]string, 0, len(storage.SupportedProviders()))
	for _, provider := range storage.SupportedProviders() {
		names = append(names, string(provider))
	}
	return strings.Join(names, ", ")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("cassandra-cluster-backup")
	}

	viper.SetEnvPrefix("CASSANDRA_CLUSTER_BACKUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// buildConfig assembles and validates the tool configuration from the config
// file and flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfig assembles the configuration without validating the cluster and
// storage fields. Local-source restores run without either.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// --no-sudo inverts the config default, so it cannot go through viper.
	if cmd.Flags().Changed("no-sudo") {
		cfg.SSH.UseSudo = !noSudo
	}

	if sshAskPassword {
		password, err := promptPassword("SSH password: ")
		if err != nil {
			return nil, err
		}
		cfg.SSH.Password = password
	}

	if verbose {
		cfg.Logging.Level = string(logging.LogLevelVerbose)
	}
	if quiet {
		cfg.Logging.Level = string(logging.LogLevelQuiet)
	}
	if logJSON {
		cfg.Logging.Format = "json"
	}
	return cfg, nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// newLogger builds the run logger from the effective configuration.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:   logging.LogLevel(cfg.Logging.Level),
		Format:  cfg.Logging.Format,
		LogFile: cfg.Logging.LogFile,
	})
}

// newObjectStore opens the configured object store backend.
func newObjectStore(cmd *cobra.Command, cfg *config.Config) (storage.ObjectStore, error) {
	store, err := storage.NewObjectStore(cmd.Context(), cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}
	return store, nil
}

// newRegistry opens the snapshot registry over the configured base path.
func newRegistry(store storage.ObjectStore, cfg *config.Config, logger *logging.Logger) *snapshot.Registry {
	return snapshot.NewRegistry(store, cfg.Cluster.BasePath, logger)
}

// newExecutor opens the SSH fan-out executor.
func newExecutor(cfg *config.Config, logger *logging.Logger) (*remote.SSHExecutor, error) {
	executor, err := remote.NewSSHExecutor(cfg.SSH, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure SSH: %w", err)
	}
	return executor, nil
}

// Version information (set by main package)
var (
	version   = "dev"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, gc string) {
	version = v
	gitCommit = gc
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cassandra-cluster-backup version %s\n", version)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

func init() {
	rootCmd.AddCommand(createVersionCommand())
}
