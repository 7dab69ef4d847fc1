package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

func TestMatchPagesExplicitOverridesTitleMatch(t *testing.T) {
	baseline := []model.PageDescriptor{{Path: "/old-home", Title: "Home"}}
	candidate := []model.PageDescriptor{{Path: "/new-home", Title: "Home"}}
	pageMap := model.PageMap{{BaselinePath: "/old-home", CandidatePath: "/new-home"}}

	matched, baselineLeft, candidateLeft := MatchPages(baseline, candidate, pageMap)

	require.Len(t, matched, 1)
	assert.Equal(t, "explicit", matched[0].Reason)
	assert.Equal(t, 1.0, matched[0].Confidence)
	assert.Empty(t, baselineLeft)
	assert.Empty(t, candidateLeft)
}

func TestMatchPagesFallsBackToPathThenTitle(t *testing.T) {
	baseline := []model.PageDescriptor{
		{Path: "/about", Title: "About Us"},
		{Path: "/contact-old", Title: "Contact"},
	}
	candidate := []model.PageDescriptor{
		{Path: "/about", Title: "About Us"},
		{Path: "/contact-new", Title: "Contact"},
	}

	matched, baselineLeft, candidateLeft := MatchPages(baseline, candidate, nil)

	require.Len(t, matched, 2)
	assert.Empty(t, baselineLeft)
	assert.Empty(t, candidateLeft)

	var reasons []string
	for _, m := range matched {
		reasons = append(reasons, m.Reason)
	}
	assert.Contains(t, reasons, "path")
	assert.Contains(t, reasons, "title")
}

func TestMatchPagesLeavesUnmatchedRemainders(t *testing.T) {
	baseline := []model.PageDescriptor{{Path: "/removed", Title: "Gone"}}
	candidate := []model.PageDescriptor{{Path: "/added", Title: "New"}}

	matched, baselineLeft, candidateLeft := MatchPages(baseline, candidate, nil)

	assert.Empty(t, matched)
	require.Len(t, baselineLeft, 1)
	require.Len(t, candidateLeft, 1)
	assert.Equal(t, "/removed", baselineLeft[0].Path)
	assert.Equal(t, "/added", candidateLeft[0].Path)
}

func TestMatchPagesExplicitPairConsumesFromFurtherRules(t *testing.T) {
	baseline := []model.PageDescriptor{{Path: "/a", Title: "Same"}}
	candidate := []model.PageDescriptor{{Path: "/a", Title: "Same"}, {Path: "/b", Title: "Other"}}
	// Explicit mapping points elsewhere, so the path-identical pair must
	// NOT also fall into an automatic path match once consumed.
	pageMap := model.PageMap{{BaselinePath: "/a", CandidatePath: "/b"}}

	matched, baselineLeft, candidateLeft := MatchPages(baseline, candidate, pageMap)

	require.Len(t, matched, 1)
	assert.Equal(t, "explicit", matched[0].Reason)
	assert.Equal(t, "/b", matched[0].Candidate.Path)
	assert.Empty(t, baselineLeft)
	require.Len(t, candidateLeft, 1)
	assert.Equal(t, "/a", candidateLeft[0].Path)
}
