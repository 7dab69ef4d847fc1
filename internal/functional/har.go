package functional

import (
	"encoding/json"
	"fmt"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
)

// HAR is a minimal HAR-1.2-shaped document (spec.md §4.7). Only the
// fields the stage itself populates are modeled; unknown HAR consumers
// tolerate the omitted ones per the format's own spec.
type HAR struct {
	Log harLog `json:"log"`
}

type harLog struct {
	Version string     `json:"version"`
	Creator harCreator `json:"creator"`
	Entries []harEntry `json:"entries"`
}

type harCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type harEntry struct {
	StartedDateTime string       `json:"startedDateTime"`
	Time            float64      `json:"time"`
	Request         harRequest   `json:"request"`
	Response        harResponse  `json:"response"`
}

type harRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type harResponse struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
}

func buildHAR(pr PageResult, page browser.Page) HAR {
	reqs := page.NetworkRequests()
	resps := page.NetworkResponses()

	entries := make([]harEntry, 0, len(reqs))
	for i, req := range reqs {
		entry := harEntry{
			StartedDateTime: req.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			Request:         harRequest{Method: req.Method, URL: req.URL},
		}
		if i < len(resps) {
			entry.Response = harResponse{Status: resps[i].Status, StatusText: resps[i].StatusText}
		}
		entries = append(entries, entry)
	}

	return HAR{Log: harLog{
		Version: "1.2",
		Creator: harCreator{Name: "migrate-guard", Version: "1"},
		Entries: entries,
	}}
}

// BuildOrFallbackHAR marshals pr.HAR, falling back to a minimal valid HAR
// with empty entries if marshaling fails (spec.md §4.7's fallback rule).
func BuildOrFallbackHAR(pr PageResult) ([]byte, error) {
	data, err := json.MarshalIndent(pr.HAR, "", "  ")
	if err == nil {
		return data, nil
	}

	fallback := HAR{Log: harLog{
		Version: "1.2",
		Creator: harCreator{Name: "migrate-guard", Version: "1"},
		Entries: []harEntry{},
	}}
	data, ferr := json.MarshalIndent(fallback, "", "  ")
	if ferr != nil {
		return nil, fmt.Errorf("functional: build fallback HAR: %w", ferr)
	}
	return data, nil
}
