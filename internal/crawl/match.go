package crawl

import (
	"strings"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

// MatchPages implements the page-matching algorithm of spec.md §4.4: each
// rule is applied in order, consuming matched pages from further
// consideration, with a stable discovery-order tie-break.
func MatchPages(baseline, candidate []model.PageDescriptor, pageMap model.PageMap) ([]model.MatchedPage, []model.PageDescriptor, []model.PageDescriptor) {
	baselineLeft := append([]model.PageDescriptor{}, baseline...)
	candidateLeft := append([]model.PageDescriptor{}, candidate...)

	var matched []model.MatchedPage

	matched, baselineLeft, candidateLeft = matchExplicit(pageMap, baselineLeft, candidateLeft, matched)
	matched, baselineLeft, candidateLeft = matchByRule(baselineLeft, candidateLeft, matched, 0.9, "path", func(b, c model.PageDescriptor) bool {
		return b.Path == c.Path
	})
	matched, baselineLeft, candidateLeft = matchByRule(baselineLeft, candidateLeft, matched, 0.7, "title", func(b, c model.PageDescriptor) bool {
		bt := strings.ToLower(strings.TrimSpace(b.Title))
		ct := strings.ToLower(strings.TrimSpace(c.Title))
		return bt != "" && bt == ct
	})

	return matched, baselineLeft, candidateLeft
}

func matchExplicit(pageMap model.PageMap, baseline, candidate []model.PageDescriptor, matched []model.MatchedPage) ([]model.MatchedPage, []model.PageDescriptor, []model.PageDescriptor) {
	for _, pair := range pageMap {
		bi := indexByPath(baseline, pair.BaselinePath)
		ci := indexByPath(candidate, pair.CandidatePath)
		if bi < 0 || ci < 0 {
			continue
		}
		matched = append(matched, model.MatchedPage{
			Baseline:   baseline[bi],
			Candidate:  candidate[ci],
			Confidence: 1.0,
			Reason:     "explicit",
		})
		baseline = removeAt(baseline, bi)
		candidate = removeAt(candidate, ci)
	}
	return matched, baseline, candidate
}

func matchByRule(baseline, candidate []model.PageDescriptor, matched []model.MatchedPage, confidence float64, reason string, eq func(b, c model.PageDescriptor) bool) ([]model.MatchedPage, []model.PageDescriptor, []model.PageDescriptor) {
	var remainingBaseline []model.PageDescriptor
	for _, b := range baseline {
		ci := -1
		for i, c := range candidate {
			if eq(b, c) {
				ci = i
				break
			}
		}
		if ci < 0 {
			remainingBaseline = append(remainingBaseline, b)
			continue
		}
		matched = append(matched, model.MatchedPage{
			Baseline:   b,
			Candidate:  candidate[ci],
			Confidence: confidence,
			Reason:     reason,
		})
		candidate = removeAt(candidate, ci)
	}
	return matched, remainingBaseline, candidate
}

func indexByPath(pages []model.PageDescriptor, p string) int {
	for i, pg := range pages {
		if pg.Path == p {
			return i
		}
	}
	return -1
}

func removeAt(pages []model.PageDescriptor, i int) []model.PageDescriptor {
	out := make([]model.PageDescriptor, 0, len(pages)-1)
	out = append(out, pages[:i]...)
	out = append(out, pages[i+1:]...)
	return out
}
