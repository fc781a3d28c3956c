package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cassandra-cluster-backup/internal/config"
)

var configOutputPath string

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

// configInitCmd generates a starter configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration file with the default values filled in.

The file is written in YAML and covers the storage backend, the SSH
connection settings and the cluster layout. Existing files are never
overwritten.

Examples:
  # Write ./cassandra-cluster-backup.yaml
  cassandra-cluster-backup config init

  # Write to a custom location
  cassandra-cluster-backup config init --output /etc/cassandra-cluster-backup.yaml`,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configOutputPath, "output", "cassandra-cluster-backup.yaml", "where to write the configuration file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(configOutputPath); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", configOutputPath)
	return nil
}
