// Package model defines the persisted entities of migrate-guard: the
// ComparisonJob/Run/RunArtifact aggregate and their value objects. Entities
// store ids, never direct pointers, to each other — the StorageSnapshot is
// the sole owner of the object graph (see storage.Snapshot).
package model

import "time"

// JobStatus is the lifecycle status of a ComparisonJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// RunStatus is the lifecycle status of a Run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ArtifactType classifies a RunArtifact.
type ArtifactType string

const (
	ArtifactLog        ArtifactType = "log"
	ArtifactScreenshot ArtifactType = "screenshot"
	ArtifactReport     ArtifactType = "report"
	ArtifactOther      ArtifactType = "other"
)

// CrawlConfig controls the bounded BFS crawl of spec §4.4.
type CrawlConfig struct {
	MaxDepth            int      `json:"maxDepth"`
	IncludePatterns     []string `json:"includePatterns,omitempty"`
	ExcludePatterns     []string `json:"excludePatterns,omitempty"`
	MaxPages            int      `json:"maxPages"`
	FollowExternalLinks bool     `json:"followExternalLinks"`
}

// DefaultCrawlConfig returns the spec-mandated defaults: depth=1,
// maxPages=10, followExternal=false.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{MaxDepth: 1, MaxPages: 10, FollowExternalLinks: false}
}

// PagePair is one explicit override/supplement entry in a PageMap.
type PagePair struct {
	BaselinePath  string `json:"baselinePath"`
	CandidatePath string `json:"candidatePath"`
	Notes         string `json:"notes,omitempty"`
}

// PageMap is an ordered sequence of explicit page pairs (spec §3).
type PageMap []PagePair

// TestMatrix selects which diff stages run for a job.
type TestMatrix struct {
	Visual     bool `json:"visual"`
	Functional bool `json:"functional"`
	Data       bool `json:"data"`
	SEO        bool `json:"seo"`
}

// DefaultTestMatrix returns the spec-mandated default: all flags true.
func DefaultTestMatrix() TestMatrix {
	return TestMatrix{Visual: true, Functional: true, Data: true, SEO: true}
}

// ComparisonJob is the user-declared intent to compare a baseline and
// candidate site (spec §3).
type ComparisonJob struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	BaselineURL    string      `json:"baselineUrl"`
	CandidateURL   string      `json:"candidateUrl"`
	CrawlConfig    CrawlConfig `json:"crawlConfig"`
	PageMap        PageMap     `json:"pageMap,omitempty"`
	TestMatrix     TestMatrix  `json:"testMatrix"`
	Status         JobStatus   `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	MigratedFrom   string      `json:"migratedFrom,omitempty"`
	SnapshotFormat int         `json:"snapshotFormat"`
}

// Run is one execution of a ComparisonJob (spec §3).
type Run struct {
	ID            string     `json:"id"`
	JobID         string     `json:"jobId"`
	Status        RunStatus  `json:"status"`
	TriggeredBy   string     `json:"triggeredBy"`
	TriggeredAt   time.Time  `json:"triggeredAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	FailureReason string     `json:"failureReason,omitempty"`
	CurrentStage  string     `json:"currentStage,omitempty"`
}

// RunArtifact is a typed, labeled reference to a file produced during a run
// (spec §3). Path is the file's artifact-root-relative path prefixed with
// "data/artifacts/", so always of the form "data/artifacts/{runId}/...".
type RunArtifact struct {
	ID        string       `json:"id"`
	RunID     string       `json:"runId"`
	Type      ArtifactType `json:"type"`
	Label     string       `json:"label"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"createdAt"`
}

// PageDescriptor identifies one discovered page on one site.
type PageDescriptor struct {
	URL      string            `json:"url"`
	Path     string            `json:"path"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Links    []string          `json:"links,omitempty"`
	Depth    int               `json:"depth"`
}

// MatchedPage is a (baseline, candidate) pair the pipeline treats as
// equivalent comparison targets (spec §3). Ephemeral: serialized as an
// artifact, never part of the StorageSnapshot itself.
type MatchedPage struct {
	Baseline   PageDescriptor `json:"baseline"`
	Candidate  PageDescriptor `json:"candidate"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
}

// Clone returns a deep copy of the job sufficient for use as an immutable
// per-run snapshot (pipeline.RunContext carries one).
func (j ComparisonJob) Clone() ComparisonJob {
	clone := j
	if j.CrawlConfig.IncludePatterns != nil {
		clone.CrawlConfig.IncludePatterns = append([]string{}, j.CrawlConfig.IncludePatterns...)
	}
	if j.CrawlConfig.ExcludePatterns != nil {
		clone.CrawlConfig.ExcludePatterns = append([]string{}, j.CrawlConfig.ExcludePatterns...)
	}
	if j.PageMap != nil {
		clone.PageMap = append(PageMap{}, j.PageMap...)
	}
	return clone
}
