package storage

import (
	"fmt"
	"time"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

// migrate converts a decoded snapshotDocument into the current model.
// Snapshot shape, applying the legacy-jobs migration rule (spec.md §4.1,
// scenario S7) when a "jobs" key with sourceUrl/targetUrl shapes is
// present. Total and non-destructive: the legacy rows are summarized into
// metadata notes rather than dropped silently.
func migrate(doc snapshotDocument) (model.Snapshot, error) {
	snap := model.Snapshot{
		FormatVersion: model.CurrentFormatVersion,
		Jobs:          doc.ComparisonJobs,
		Runs:          doc.Runs,
		Artifacts:     doc.Artifacts,
		Metadata: model.SnapshotMetadata{
			LastMigration: doc.Metadata.LastMigration,
			Notes:         doc.Metadata.Notes,
		},
	}
	if snap.Jobs == nil {
		snap.Jobs = map[string]model.ComparisonJob{}
	}

	if len(doc.LegacyJobs) == 0 {
		return snap, nil
	}

	now := time.Now().UTC()
	migrated := 0
	for _, legacy := range doc.LegacyJobs {
		id := legacy.ID
		if id == "" {
			id = idgen.New()
		}
		if _, exists := snap.Jobs[id]; exists {
			continue
		}
		snap.Jobs[id] = model.ComparisonJob{
			ID:           id,
			Name:         legacy.Name,
			BaselineURL:  legacy.SourceURL,
			CandidateURL: legacy.TargetURL,
			CrawlConfig:  model.DefaultCrawlConfig(),
			TestMatrix:   model.DefaultTestMatrix(),
			Status:       model.JobPending,
			CreatedAt:    now,
			UpdatedAt:    now,
			MigratedFrom: legacy.ID,
		}
		migrated++
	}

	if migrated > 0 {
		snap.Metadata.LastMigration = now.Format(time.RFC3339)
		snap.Metadata.Notes = append(snap.Metadata.Notes, fmt.Sprintf(
			"migrated %d legacy job(s) from the sourceUrl/targetUrl shape at %s",
			migrated, snap.Metadata.LastMigration))
	}

	return snap, nil
}

// MigrateLegacyCount reports how many ComparisonJobs in snap carry a
// MigratedFrom back-pointer — used by the JobService's idempotent
// migrate-legacy operation to report a count without re-running migration
// (migration already happens transparently on every load).
func MigrateLegacyCount(snap model.Snapshot) int {
	n := 0
	for _, j := range snap.Jobs {
		if j.MigratedFrom != "" {
			n++
		}
	}
	return n
}
