// Package dataintegrity implements the Data Integrity stage of spec.md
// §4.8: static extraction of visible text, headings, paragraphs, anchors,
// tables, pricing, and JSON-LD from captured HTML, then structural/textual
// comparison. Extraction is grounded directly on docpipe/html.go's
// node-walk-with-skip-list idiom.
package dataintegrity

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// pricingSelectors is the small, hard-coded selector set spec.md §4.8
// names (Open Question in spec.md §9: not made configurable — see
// DESIGN.md). Matched structurally against class/data attributes rather
// than via a real CSS engine, since the corpus has no CSS selector
// library wired for this purpose.
var pricingSelectors = []func(*html.Node) bool{
	hasClassContaining("price"),
	hasAttr("data-price"),
}

var currencyRegex = regexp.MustCompile(`(?i)([$€£¥]|USD|EUR|GBP)\s*([\d,]+\.?\d*)`)

// Heading is an h1-h6 with its level (spec.md §4.8).
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Anchor is one extracted link (spec.md §4.8).
type Anchor struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Table is headers plus 2-D body rows (spec.md §4.8).
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// PriceElement is one pricing match (spec.md §4.8).
type PriceElement struct {
	Selector string  `json:"selector"`
	Raw      string  `json:"raw"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PageMetadata is title/description/keywords (spec.md §4.8).
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
}

// Extracted is everything pulled from one page's HTML.
type Extracted struct {
	VisibleText  string         `json:"visibleText"`
	Headings     []Heading      `json:"headings"`
	Paragraphs   []string       `json:"paragraphs"`
	Anchors      []Anchor       `json:"anchors"`
	Tables       []Table        `json:"tables"`
	Pricing      []PriceElement `json:"pricing"`
	StructuredJSON []string     `json:"structuredJson"`
	Metadata     PageMetadata   `json:"metadata"`
}

// Extract parses rawHTML and pulls every field spec.md §4.8 names.
func Extract(rawHTML string) (Extracted, error) {
	doc, err := html.Parse(bytes.NewReader([]byte(rawHTML)))
	if err != nil {
		return Extracted{}, err
	}

	ex := Extracted{Metadata: extractMetadata(doc)}
	ex.VisibleText = collectVisibleText(doc)
	walkExtract(doc, &ex)
	return ex, nil
}

func extractMetadata(doc *html.Node) PageMetadata {
	meta := PageMetadata{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if n.FirstChild != nil && meta.Title == "" {
					meta.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case atom.Meta:
				name, content := "", ""
				for _, a := range n.Attr {
					switch strings.ToLower(a.Key) {
					case "name":
						name = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				switch name {
				case "description":
					meta.Description = content
				case "keywords":
					meta.Keywords = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return meta
}

func walkExtract(n *html.Node, ex *Extracted) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script:
			if isJSONLD(n) {
				if n.FirstChild != nil {
					ex.StructuredJSON = append(ex.StructuredJSON, n.FirstChild.Data)
				}
			}
			return
		case atom.Style, atom.Noscript:
			return
		}
		if hasHiddenStyle(n) {
			return
		}

		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			text := collectVisibleText(n)
			if text != "" {
				ex.Headings = append(ex.Headings, Heading{Level: int(n.Data[1] - '0'), Text: text})
			}
			return
		case atom.P:
			text := collectVisibleText(n)
			if text != "" {
				ex.Paragraphs = append(ex.Paragraphs, text)
			}
			return
		case atom.A:
			href := attrVal(n, "href")
			text := collectVisibleText(n)
			if href != "" {
				ex.Anchors = append(ex.Anchors, Anchor{Text: text, Href: href})
			}
		case atom.Table:
			ex.Tables = append(ex.Tables, extractTable(n))
			return
		}

		for _, matches := range pricingSelectors {
			if matches(n) {
				if p, ok := parsePrice(n); ok {
					ex.Pricing = append(ex.Pricing, p)
				}
				break
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkExtract(c, ex)
	}
}

func isJSONLD(n *html.Node) bool {
	return attrVal(n, "type") == "application/ld+json"
}

func hasClassContaining(substr string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return strings.Contains(strings.ToLower(attrVal(n, "class")), substr)
	}
}

func hasAttr(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, a := range n.Attr {
			if a.Key == name {
				return true
			}
		}
		return false
	}
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasHiddenStyle(n *html.Node) bool {
	style := attrVal(n, "style")
	for _, pat := range hiddenStylePatterns {
		if pat.MatchString(style) {
			return true
		}
	}
	return false
}

func parsePrice(n *html.Node) (PriceElement, bool) {
	text := collectVisibleText(n)
	m := currencyRegex.FindStringSubmatch(text)
	if m == nil {
		return PriceElement{}, false
	}
	amountStr := strings.ReplaceAll(m[2], ",", "")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return PriceElement{}, false
	}
	return PriceElement{Raw: text, Amount: amount, Currency: normalizeCurrency(m[1])}, true
}

func normalizeCurrency(symbol string) string {
	switch symbol {
	case "$":
		return "USD"
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	case "¥":
		return "JPY"
	default:
		return strings.ToUpper(symbol)
	}
}

func extractTable(n *html.Node) Table {
	var t Table
	rows := findRows(n)
	if len(rows) == 0 {
		return t
	}

	headerRow := findFirstThead(n)
	startIdx := 0
	if headerRow != nil {
		t.Headers = rowCells(headerRow)
	} else {
		t.Headers = rowCells(rows[0])
		startIdx = 1
	}

	for _, r := range rows[startIdx:] {
		if r == headerRow {
			continue
		}
		t.Rows = append(t.Rows, rowCells(r))
	}
	return t
}

func findFirstThead(table *html.Node) *html.Node {
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Thead {
			for tr := c.FirstChild; tr != nil; tr = tr.NextSibling {
				if tr.Type == html.ElementNode && tr.DataAtom == atom.Tr {
					return tr
				}
			}
		}
	}
	return nil
}

func findRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			rows = append(rows, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, strings.TrimSpace(collectVisibleText(c)))
		}
	}
	return cells
}

// collectVisibleText walks n's subtree collecting text node content,
// skipping script/style/noscript and hidden-style elements.
func collectVisibleText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
			if hasHiddenStyle(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
