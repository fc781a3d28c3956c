// Package backup drives a cluster through the backup workflow:
//
//   - requests every node to take a point-in-time snapshot (or, for
//     incremental runs, to flush its write-ahead buffer)
//   - uploads the produced files to the object store via the node agent
//   - clears snapshot state from the nodes
//   - publishes backup metadata (ring description, schema dumps, manifest)
//
// Cluster-wide steps run once per host in parallel, bounded by the
// configured pool size; steps are strictly sequential. A failure on any
// single host fails the whole step.
package backup
