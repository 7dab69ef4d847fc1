package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// llmTemperature is the low temperature spec.md §4.9 requires ("Temperature
// low (<=0.3)").
const llmTemperature = 0.2

const defaultModel = "claude-sonnet-4-5-20250929"

const systemPrompt = `You are a migration-assurance analyst reviewing automated comparison results between a baseline production site and a candidate migrated site. You will be given a compact summary of visual, functional, and data-integrity diff results. Respond with a single JSON object only, no prose, matching this shape:
{
  "categories": [{"category": "visual|functional|data_integrity", "severity": "none|low|medium|high|critical", "confidence": 0.0, "pass": true, "explanation": "", "keyFindings": [], "falsePositives": [], "expectedChanges": []}],
  "overall": {"severity": "none|low|medium|high|critical", "confidence": 0.0, "pass": true, "explanation": "", "recommendations": []}
}
Only include categories present in the input. Flag likely false positives (e.g. timestamps, ad content, A/B test variants) in falsePositives rather than counting them against severity.`

// Client is the subset of the Anthropic SDK the LLM reasoner needs,
// mirroring sells-group-research-cli/pkg/anthropic/client.go's
// narrow-wrapper idiom but without its batching surface, which this
// stage has no use for.
type Client interface {
	CreateMessage(ctx context.Context, systemText string, userText string, temperature float64) (string, error)
}

// sdkClient implements Client against the official SDK.
type sdkClient struct {
	client sdk.Client
	model  string
}

// NewClient constructs an Anthropic-backed Client.
func NewClient(apiKey, model string) Client {
	if model == "" {
		model = defaultModel
	}
	return &sdkClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, systemText, userText string, temperature float64) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   2048,
		Temperature: sdk.Float(temperature),
		System:      []sdk.TextBlockParam{{Text: systemText}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(userText))},
	})
	if err != nil {
		return "", fmt.Errorf("reasoning: create message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		sb.WriteString(block.Text)
	}
	return sb.String(), nil
}

// LLM is the AI-backed reasoner (spec.md §4.9).
type LLM struct {
	client Client
	logger *slog.Logger
}

// NewLLM constructs an LLM reasoner.
func NewLLM(client Client, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{client: client, logger: logger}
}

// Reason builds a prompt from the summary, requests a JSON object, and
// parses it leniently (spec.md §4.9: "extract the first balanced JSON
// object").
func (l *LLM) Reason(ctx context.Context, in Input) (Output, error) {
	prompt := buildPrompt(in)

	raw, err := l.client.CreateMessage(ctx, systemPrompt, prompt, llmTemperature)
	if err != nil {
		return Output{}, fmt.Errorf("reasoning: llm call failed: %w", err)
	}

	object := extractBalancedJSONObject(raw)
	if object == "" {
		return Output{}, fmt.Errorf("reasoning: no JSON object found in LLM response")
	}

	var parsed struct {
		Categories []CategoryRecord `json:"categories"`
		Overall    Overall          `json:"overall"`
	}
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return Output{}, fmt.Errorf("reasoning: parse LLM response: %w", err)
	}

	l.logger.Debug("reasoning llm response parsed", "categories", len(parsed.Categories))
	return Output{Categories: parsed.Categories, Overall: parsed.Overall, Source: "llm"}, nil
}

func buildPrompt(in Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total pages compared: %d\n\n", in.TotalPages)

	if in.Visual != nil {
		fmt.Fprintf(&sb, "Visual diff summary:\n- average diff: %.2f%%\n- critical issues: %d\n- counts by severity: %v\n\n",
			in.Visual.AverageDiffPct, in.Visual.CriticalIssues, in.Visual.CountBySeverity)
	}
	if in.Functional != nil {
		fmt.Fprintf(&sb, "Functional QA summary:\n- broken links: %d\n- JS errors: %d\n- form issues: %d\n\n",
			in.Functional.TotalBrokenLinks, in.Functional.TotalJSErrors, in.Functional.FormIssues)
	}
	if in.DataIntegrity != nil {
		fmt.Fprintf(&sb, "Data integrity summary:\n- average similarity: %.2f\n- critical mismatches: %d\n- total field diffs: %d\n\n",
			in.DataIntegrity.AverageSimilarity, in.DataIntegrity.CriticalMismatches, in.DataIntegrity.TotalFieldDiffs)
	}
	return sb.String()
}

// extractBalancedJSONObject returns the first top-level balanced {...}
// substring of s, tolerating braces inside string literals, or "" if
// none is found.
func extractBalancedJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
