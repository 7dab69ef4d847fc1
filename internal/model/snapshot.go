package model

// Snapshot is the complete, authoritative state of the service, persisted
// as a single JSON document (spec.md §4.1, §6). storage.Store owns reading
// and atomically rewriting this structure; nothing else may serialize it.
type Snapshot struct {
	FormatVersion int                      `json:"formatVersion"`
	Jobs          map[string]ComparisonJob `json:"jobs"`
	Runs          map[string]Run           `json:"runs"`
	Artifacts     map[string]RunArtifact   `json:"artifacts"`
	Metadata      SnapshotMetadata         `json:"metadata"`
}

// SnapshotMetadata carries the non-authoritative bookkeeping spec.md §3
// lists alongside StorageSnapshot: the timestamp of the last legacy-shape
// migration, and free-form notes accumulated along the way (spec.md
// §4.1's "old shape is summarized in the metadata field", scenario S7).
type SnapshotMetadata struct {
	LastMigration string   `json:"lastMigration,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

// CurrentFormatVersion is bumped whenever Snapshot's shape changes in a way
// storage.Migrate must handle.
const CurrentFormatVersion = 1

// NewSnapshot returns an empty, well-formed Snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{
		FormatVersion: CurrentFormatVersion,
		Jobs:          map[string]ComparisonJob{},
		Runs:          map[string]Run{},
		Artifacts:     map[string]RunArtifact{},
	}
}

// RunsForJob returns every Run belonging to jobID, in no particular order;
// callers that need chronological order sort on TriggeredAt.
func (s Snapshot) RunsForJob(jobID string) []Run {
	var out []Run
	for _, r := range s.Runs {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out
}

// ArtifactsForRun returns every RunArtifact belonging to runID.
func (s Snapshot) ArtifactsForRun(runID string) []RunArtifact {
	var out []RunArtifact
	for _, a := range s.Artifacts {
		if a.RunID == runID {
			out = append(out, a)
		}
	}
	return out
}
