package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

type fakePage struct {
	url string
}

func (p *fakePage) Navigate(ctx context.Context, url string, vp browser.Viewport) (browser.NavigateResult, error) {
	p.url = url
	return browser.NavigateResult{FinalURL: url, Status: 200, LoadTimeMS: 12}, nil
}
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error)   { return []byte("png-bytes"), nil }
func (p *fakePage) FullHTML(ctx context.Context) (string, error)     { return "<html></html>", nil }
func (p *fakePage) VisibleText(ctx context.Context) (string, error)  { return "hello world", nil }
func (p *fakePage) ConsoleMessages() []browser.ConsoleMessage        { return nil }
func (p *fakePage) NetworkRequests() []browser.NetworkRequest        { return nil }
func (p *fakePage) NetworkResponses() []browser.NetworkResponse      { return nil }
func (p *fakePage) Eval(ctx context.Context, expr string) (string, error) { return "null", nil }
func (p *fakePage) ClickAndWait(ctx context.Context, selector string, grace time.Duration) error {
	return nil
}
func (p *fakePage) Fill(ctx context.Context, selector, value string) error { return nil }
func (p *fakePage) GoBack(ctx context.Context) error                      { return nil }
func (p *fakePage) URL() string                                           { return p.url }
func (p *fakePage) Close() error                                          { return nil }

type fakeContext struct{}

func (fakeContext) OpenPage(ctx context.Context, blockResources bool) (browser.Page, error) {
	return &fakePage{}, nil
}
func (fakeContext) Close() error { return nil }

type memSink struct {
	mu        sync.Mutex
	files     map[string][]byte
	artifacts []model.RunArtifact
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]byte{}}
}

func (s *memSink) WriteArtifactFile(relPath string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[relPath] = data
	return nil
}

func (s *memSink) RegisterArtifact(runID string, typ model.ArtifactType, label, relPath string) (model.RunArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := model.RunArtifact{ID: relPath, RunID: runID, Type: typ, Label: label, Path: relPath}
	s.artifacts = append(s.artifacts, a)
	return a, nil
}

func (s *memSink) ReadArtifactFile(relPath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[relPath], nil
}

func TestStageRunCapturesBaselineThenCandidateForEveryViewport(t *testing.T) {
	sink := newMemSink()
	stage := New(sink, []browser.Viewport{{Name: "desktop", Width: 1920, Height: 1080}}, nil)

	pages := []model.MatchedPage{
		{
			Baseline:  model.PageDescriptor{URL: "https://old.example.com/pricing", Path: "/pricing"},
			Candidate: model.PageDescriptor{URL: "https://new.example.com/pricing", Path: "/pricing"},
		},
	}

	results, err := stage.Run(context.Background(), "run_1", pages, fakeContext{}, fakeContext{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, SideBaseline, results[0].Side)
	assert.Equal(t, SideCandidate, results[1].Side)
	assert.Equal(t, "pricing", results[0].SanitizedPath)
	require.Len(t, results[0].Viewports, 1)
	assert.Equal(t, 200, results[0].Viewports[0].Status)

	assert.NotEmpty(t, sink.files)
	assert.NotEmpty(t, sink.artifacts)
}
