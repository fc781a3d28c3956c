package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"cassandra-cluster-backup/internal/snapshot"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the snapshots stored under the base path",
	Long: `List the snapshots stored in the object store, grouped by base path
and ordered most recent first. Each entry shows the snapshot name, the hosts
it covers and its keyspace/table scope.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// runList is the main execution function for the list command
func runList(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	store, err := newObjectStore(cmd, cfg)
	if err != nil {
		return err
	}

	snapshots, err := newRegistry(store, cfg, logger).ListAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		fmt.Println("No snapshots found.")
		return nil
	}

	color.NoColor = color.NoColor || !isatty.IsTerminal(os.Stdout.Fd())
	printSnapshotList(os.Stdout, snapshots)
	return nil
}

func printSnapshotList(out io.Writer, snapshots []*snapshot.Snapshot) {
	header := color.New(color.Bold)
	name := color.New(color.FgCyan)

	// Group by base path, keeping the most-recent-first order inside groups.
	groups := make(map[string][]*snapshot.Snapshot)
	var order []string
	for _, snap := range snapshots {
		if _, ok := groups[snap.BasePath]; !ok {
			order = append(order, snap.BasePath)
		}
		groups[snap.BasePath] = append(groups[snap.BasePath], snap)
	}

	for _, basePath := range order {
		header.Fprintf(out, "%s:\n", basePath)
		for _, snap := range groups[basePath] {
			name.Fprintf(out, "  %s", snap.Name)
			fmt.Fprintf(out, "  hosts=%s", strings.Join(snap.Hosts, ","))
			if snap.Keyspaces != "" {
				fmt.Fprintf(out, "  keyspaces=%s", snap.Keyspaces)
			}
			if snap.Table != "" {
				fmt.Fprintf(out, "  table=%s", snap.Table)
			}
			fmt.Fprintln(out)
		}
	}
}
