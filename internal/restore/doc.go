// Package restore rebuilds tables from a stored snapshot. Backup files for
// the selected keyspace are fetched from the object store (or copied from a
// local directory), merged per table into a staging directory with
// collision-safe names, and streamed into the target cluster with
// sstableloader.
package restore
