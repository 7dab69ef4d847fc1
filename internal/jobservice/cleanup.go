package jobservice

import (
	"os"
	"path/filepath"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
)

// removeRunArtifactDir best-effort deletes a run's artifact subtree. The
// registry rows are already gone by the time this runs, so failure here
// only leaves an orphan directory on disk, which spec.md §4.2 tolerates.
func removeRunArtifactDir(store *storage.Store, runID string) error {
	dir := filepath.Join(store.ArtifactRoot(), runID)
	return os.RemoveAll(dir)
}
