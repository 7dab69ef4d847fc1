package functional

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
)

type formDescriptor struct {
	Selector string       `json:"selector"`
	Inputs   []inputField `json:"inputs"`
	Selects  []string     `json:"selects"`
}

type inputField struct {
	Selector string `json:"selector"`
	Type     string `json:"type"`
	Name     string `json:"name"`
}

// listFormsScript enumerates every form with at least one input, matching
// spec.md §4.7's "for every form with at least one input" scope.
const listFormsScript = `() => {
	const forms = Array.from(document.querySelectorAll("form"));
	return JSON.stringify(forms.map((f, i) => {
		const inputs = Array.from(f.querySelectorAll("input, textarea")).map((el, j) => ({
			selector: "form:nth-of-type(" + (i+1) + ") " + el.tagName.toLowerCase() + ":nth-of-type(" + (j+1) + ")",
			type: el.type || el.tagName.toLowerCase(),
			name: el.name || "",
		}));
		const selects = Array.from(f.querySelectorAll("select")).map((_, j) =>
			"form:nth-of-type(" + (i+1) + ") select:nth-of-type(" + (j+1) + ")");
		return {
			selector: "form:nth-of-type(" + (i+1) + ")",
			inputs,
			selects,
		};
	}).filter(f => f.inputs.length > 0));
}`

// exerciseForms fills every form's text inputs by heuristic, selects the
// second option in each select, and submits, per spec.md §4.7.
func exerciseForms(ctx context.Context, page browser.Page) []FormResult {
	raw, err := page.Eval(ctx, listFormsScript)
	if err != nil {
		return nil
	}

	var forms []formDescriptor
	// Eval returns a JSON-encoded JSON string (the script itself calls
	// JSON.stringify), so this is a double-decode: outer JSON unwraps the
	// string, inner JSON unwraps the form list.
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		_ = json.Unmarshal([]byte(inner), &forms)
	} else {
		_ = json.Unmarshal([]byte(raw), &forms)
	}

	var results []FormResult
	for _, f := range forms {
		results = append(results, exerciseOneForm(ctx, page, f))
	}
	return results
}

func exerciseOneForm(ctx context.Context, page browser.Page, f formDescriptor) FormResult {
	for _, input := range f.Inputs {
		value := heuristicValue(input)
		if value == "" {
			continue
		}
		if err := page.Fill(ctx, input.Selector, value); err != nil {
			return FormResult{Selector: f.Selector, Outcome: SubmitError, Detail: err.Error()}
		}
	}

	for _, sel := range f.Selects {
		selectSecond := fmt.Sprintf(`() => {
			const s = document.querySelector(%q);
			if (s && s.options.length > 1) {
				s.selectedIndex = 1;
				s.dispatchEvent(new Event("change", { bubbles: true }));
			}
		}`, sel)
		_, _ = page.Eval(ctx, selectSecond)
	}

	beforeURL := page.URL()
	if err := page.ClickAndWait(ctx, f.Selector+" [type=submit], "+f.Selector+" button", 1*time.Second); err != nil {
		return FormResult{Selector: f.Selector, Outcome: SubmitNoResponse, Detail: err.Error()}
	}

	if page.URL() != beforeURL {
		return FormResult{Selector: f.Selector, Outcome: SubmitSuccess}
	}
	return FormResult{Selector: f.Selector, Outcome: SubmitNoResponse}
}

// heuristicValue implements spec.md §4.7's field-name heuristics: email
// field -> test@example.com; name-like -> Test User; message/comment-like
// -> Test message; otherwise "test".
func heuristicValue(f inputField) string {
	if f.Type == "submit" || f.Type == "button" || f.Type == "hidden" || f.Type == "checkbox" || f.Type == "radio" {
		return ""
	}
	name := strings.ToLower(f.Name)
	switch {
	case f.Type == "email" || strings.Contains(name, "email"):
		return "test@example.com"
	case strings.Contains(name, "name"):
		return "Test User"
	case strings.Contains(name, "message") || strings.Contains(name, "comment"):
		return "Test message"
	default:
		return "test"
	}
}
