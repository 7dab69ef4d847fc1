// Package storage is the durable, crash-safe home for the StorageSnapshot
// and for artifact files (spec.md §4.1). Writes are atomic (temp file +
// fsync + rename) and serialized by a single mutex so that snapshot
// transitions are linearizable (spec.md §5).
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/errs"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

// loadSnapshotFile reads and parses the snapshot file at path. A missing
// file is not an error: callers get a fresh, empty Snapshot. A present but
// unparseable file is a StorageCorruption error — the process must refuse
// to start rather than proceed on a guess.
func loadSnapshotFile(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.NewSnapshot(), nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("storage: read %s: %w", path, err)
	}

	raw, err := decodeSnapshotDocument(data)
	if err != nil {
		return model.Snapshot{}, errs.StorageCorruption(path, err)
	}
	return migrate(raw)
}

// saveSnapshotFile persists snap atomically: write to a sibling temp file,
// fsync it, rename over the target, then fsync the containing directory so
// the rename itself survives a crash (grounded on veille/internal/buffer's
// write-tmp-then-rename idiom, hardened with the fsync discipline from the
// recovery/state store reference).
func saveSnapshotFile(path string, snap model.Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(encodeSnapshotDocument(snap), "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("storage: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("storage: write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename snapshot: %w", err)
	}
	committed = true

	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return nil // best-effort; not all platforms support directory fsync
	}
	defer f.Close()
	return f.Sync()
}

// snapshotDocument is the on-disk shape (spec.md §6): keys version,
// comparisonJobs, runs, artifacts, metadata. A legacy "jobs" key (source
// URL/target URL shape) is tolerated on read, handled by migrate().
type snapshotDocument struct {
	Version        int                          `json:"version"`
	ComparisonJobs map[string]model.ComparisonJob `json:"comparisonJobs,omitempty"`
	LegacyJobs     []legacyJob                    `json:"jobs,omitempty"`
	Runs           map[string]model.Run           `json:"runs"`
	Artifacts      map[string]model.RunArtifact   `json:"artifacts"`
	Metadata       metadataDoc                    `json:"metadata"`
}

type metadataDoc struct {
	LastMigration string   `json:"lastMigration,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

// legacyJob is the pre-migration shape named in spec.md §4.1/§6/S7.
type legacyJob struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SourceURL string `json:"sourceUrl"`
	TargetURL string `json:"targetUrl"`
}

func encodeSnapshotDocument(snap model.Snapshot) snapshotDocument {
	return snapshotDocument{
		Version:        snap.FormatVersion,
		ComparisonJobs: snap.Jobs,
		Runs:           snap.Runs,
		Artifacts:      snap.Artifacts,
		Metadata: metadataDoc{
			LastMigration: snap.Metadata.LastMigration,
			Notes:         snap.Metadata.Notes,
		},
	}
}

// decodeSnapshotDocument performs a strict JSON parse: unknown top-level
// shapes are tolerated (legacy jobs key), but malformed JSON is rejected.
func decodeSnapshotDocument(data []byte) (snapshotDocument, error) {
	var doc snapshotDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return snapshotDocument{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.ComparisonJobs == nil {
		doc.ComparisonJobs = map[string]model.ComparisonJob{}
	}
	if doc.Runs == nil {
		doc.Runs = map[string]model.Run{}
	}
	if doc.Artifacts == nil {
		doc.Artifacts = map[string]model.RunArtifact{}
	}
	return doc, nil
}
