// Package snapshot holds the manifest model describing one cluster-wide
// backup and the registry that discovers stored manifests.
//
// Snapshot data and incremental backups are stored using the convention
//
//	<bucket>:/<base_path>/<snapshot_name>/<node-hostname>/...
//
// A snapshot is represented in the object store by its manifest file at
// <base_path>/<snapshot_name>/manifest.json; the manifest is the sole durable
// anchor for later restores and incremental continuations.
package snapshot

import (
	"encoding/json"
	"time"

	"cassandra-cluster-backup/internal/errors"
)

// NameFormat is the timestamp layout used for snapshot names. Fixed width so
// that lexicographic order equals chronological order.
const NameFormat = "20060102150405"

// Snapshot describes one point-in-time (or incrementally-extended) backup.
// Name is assigned once at creation and never mutated.
type Snapshot struct {
	Name      string
	BasePath  string
	Bucket    string
	Hosts     []string
	Keyspaces string // comma-joined, empty = all
	Table     string // single column family, empty = all
}

// manifest is the persisted record layout. Keys must stay exact.
type manifest struct {
	Name      string   `json:"name"`
	BasePath  string   `json:"base_path"`
	Hosts     []string `json:"hosts"`
	Keyspaces string   `json:"keyspaces"`
	Table     string   `json:"table"`
}

// New creates a snapshot named after the current UTC time.
func New(basePath, bucket string, hosts []string, keyspaces, table string) *Snapshot {
	return &Snapshot{
		Name:      time.Now().UTC().Format(NameFormat),
		BasePath:  basePath,
		Bucket:    bucket,
		Hosts:     hosts,
		Keyspaces: keyspaces,
		Table:     table,
	}
}

// Path returns the object-store prefix holding this snapshot's manifest and data.
func (s *Snapshot) Path() string {
	return s.BasePath + "/" + s.Name
}

// ManifestKey returns the object key of this snapshot's manifest record.
func (s *Snapshot) ManifestKey() string {
	return s.Path() + "/manifest.json"
}

// Timestamp parses the snapshot name into its creation time.
func (s *Snapshot) Timestamp() (time.Time, error) {
	ts, err := time.Parse(NameFormat, s.Name)
	if err != nil {
		return time.Time{}, errors.NewManifestCorrupt("snapshot name is not a valid timestamp", err).
			WithContext("name", s.Name)
	}
	return ts, nil
}

// Compatible reports whether this snapshot can be extended incrementally for
// the given scope. The name is excluded from the compatibility key.
func (s *Snapshot) Compatible(hosts []string, keyspaces, table string) bool {
	if len(s.Hosts) != len(hosts) {
		return false
	}
	for i, h := range s.Hosts {
		if h != hosts[i] {
			return false
		}
	}
	return s.Keyspaces == keyspaces && s.Table == table
}

// Marshal serializes the manifest record.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(manifest{
		Name:      s.Name,
		BasePath:  s.BasePath,
		Hosts:     s.Hosts,
		Keyspaces: s.Keyspaces,
		Table:     s.Table,
	})
}

// Unmarshal deserializes a manifest record fetched from the given bucket.
// Malformed or incomplete records yield a MANIFEST_CORRUPT error; callers
// must treat it as recoverable and skip the record.
func Unmarshal(data []byte, bucket string) (*Snapshot, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewManifestCorrupt("manifest is not well-formed JSON", err)
	}
	if m.Name == "" || m.BasePath == "" {
		return nil, errors.NewManifestCorrupt("manifest is missing required fields", nil)
	}

	s := &Snapshot{
		Name:      m.Name,
		BasePath:  m.BasePath,
		Bucket:    bucket,
		Hosts:     m.Hosts,
		Keyspaces: m.Keyspaces,
		Table:     m.Table,
	}
	if _, err := s.Timestamp(); err != nil {
		return nil, err
	}
	return s, nil
}

// String returns the snapshot name.
func (s *Snapshot) String() string {
	return s.Name
}
