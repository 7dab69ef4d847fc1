package dataintegrity

import (
	"sort"
	"strings"
)

// CellStatus classifies one table cell comparison (spec.md §4.8).
type CellStatus string

const (
	CellMatch            CellStatus = "match"
	CellMismatch         CellStatus = "mismatch"
	CellMissingBaseline  CellStatus = "missing_baseline"
	CellMissingCandidate CellStatus = "missing_candidate"
	CellChanged          CellStatus = "changed"
)

// TableCellDiff is one positionally-compared table cell. HeaderRow marks a
// diffed header-row cell rather than a body-row cell, so a header-only
// size mismatch (spec.md §4.8) is distinguishable from a body-row one.
type TableCellDiff struct {
	Row       int        `json:"row"`
	Col       int        `json:"col"`
	HeaderRow bool       `json:"headerRow,omitempty"`
	Baseline  string     `json:"baseline,omitempty"`
	Candidate string     `json:"candidate,omitempty"`
	Status    CellStatus `json:"status"`
}

// TableDiff is the positional diff of one matched table pair.
type TableDiff struct {
	Index int             `json:"index"`
	Cells []TableCellDiff `json:"cells"`
}

// PriceDiff is one pricing comparison outcome.
type PriceDiff struct {
	Baseline  *PriceElement `json:"baseline,omitempty"`
	Candidate *PriceElement `json:"candidate,omitempty"`
	Status    CellStatus    `json:"status"`
}

// JSONDiffEntry is one leaf-level difference in a JSON deep diff.
type JSONDiffEntry struct {
	Path   string     `json:"path"`
	Status CellStatus `json:"status"`
	Baseline  interface{} `json:"baseline,omitempty"`
	Candidate interface{} `json:"candidate,omitempty"`
}

// PageStatus is the page-level rollup per spec.md §4.8.
type PageStatus string

const (
	PageMatch    PageStatus = "match"
	PagePartial  PageStatus = "partial"
	PageMismatch PageStatus = "mismatch"
)

// Comparison is the full data-integrity comparison of one matched page.
type Comparison struct {
	TextSimilarity float64         `json:"textSimilarity"`
	TableDiffs     []TableDiff     `json:"tableDiffs"`
	PriceDiffs     []PriceDiff     `json:"priceDiffs"`
	JSONDiffs      []JSONDiffEntry `json:"jsonDiffs"`
	Status         PageStatus      `json:"status"`
}

// Compare runs every spec.md §4.8 comparison between the baseline and
// candidate extraction of one matched page.
func Compare(baseline, candidate Extracted) Comparison {
	c := Comparison{
		TextSimilarity: JaccardSimilarity(baseline.VisibleText, candidate.VisibleText),
	}

	maxTables := len(baseline.Tables)
	if len(candidate.Tables) > maxTables {
		maxTables = len(candidate.Tables)
	}
	for i := 0; i < maxTables; i++ {
		var bt, ct Table
		if i < len(baseline.Tables) {
			bt = baseline.Tables[i]
		}
		if i < len(candidate.Tables) {
			ct = candidate.Tables[i]
		}
		c.TableDiffs = append(c.TableDiffs, diffTable(i, bt, ct))
	}

	c.PriceDiffs = diffPricing(baseline.Pricing, candidate.Pricing)

	for i, raw := range baseline.StructuredJSON {
		if i < len(candidate.StructuredJSON) {
			bv := parseLenientJSON(raw)
			cv := parseLenientJSON(candidate.StructuredJSON[i])
			c.JSONDiffs = append(c.JSONDiffs, diffJSON("$", bv, cv)...)
		}
	}

	c.Status = classifyPage(c)
	return c
}

// JaccardSimilarity compares two strings as lowercase word sets (spec.md
// §4.8's text-similarity metric).
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func diffTable(index int, baseline, candidate Table) TableDiff {
	td := TableDiff{Index: index}
	td.Cells = append(td.Cells, diffRow(-1, true, baseline.Headers, candidate.Headers)...)

	rows := len(baseline.Rows)
	if len(candidate.Rows) > rows {
		rows = len(candidate.Rows)
	}
	for r := 0; r < rows; r++ {
		var brow, crow []string
		if r < len(baseline.Rows) {
			brow = baseline.Rows[r]
		}
		if r < len(candidate.Rows) {
			crow = candidate.Rows[r]
		}
		td.Cells = append(td.Cells, diffRow(r, false, brow, crow)...)
	}
	return td
}

// diffRow positionally diffs one baseline/candidate row (or header row),
// flagging any size mismatch cell-by-cell (spec.md §4.8).
func diffRow(row int, headerRow bool, brow, crow []string) []TableCellDiff {
	cols := len(brow)
	if len(crow) > cols {
		cols = len(crow)
	}

	var cells []TableCellDiff
	for col := 0; col < cols; col++ {
		var bv, cv string
		hasB, hasC := col < len(brow), col < len(crow)
		if hasB {
			bv = brow[col]
		}
		if hasC {
			cv = crow[col]
		}

		cell := TableCellDiff{Row: row, Col: col, HeaderRow: headerRow, Baseline: bv, Candidate: cv}
		switch {
		case !hasB:
			cell.Status = CellMissingBaseline
		case !hasC:
			cell.Status = CellMissingCandidate
		case bv == cv:
			cell.Status = CellMatch
		default:
			cell.Status = CellMismatch
		}
		cells = append(cells, cell)
	}
	return cells
}

func diffPricing(baseline, candidate []PriceElement) []PriceDiff {
	n := len(baseline)
	if len(candidate) > n {
		n = len(candidate)
	}

	var diffs []PriceDiff
	for i := 0; i < n; i++ {
		var bp, cp *PriceElement
		if i < len(baseline) {
			bp = &baseline[i]
		}
		if i < len(candidate) {
			cp = &candidate[i]
		}

		d := PriceDiff{Baseline: bp, Candidate: cp}
		switch {
		case bp == nil:
			d.Status = CellMissingBaseline
		case cp == nil:
			d.Status = CellMissingCandidate
		case bp.Amount == cp.Amount && bp.Currency == cp.Currency:
			d.Status = CellMatch
		default:
			d.Status = CellChanged
		}
		diffs = append(diffs, d)
	}
	return diffs
}

// diffJSON recursively compares two decoded JSON-LD values, emitting one
// entry per leaf-level difference (spec.md §4.8's JSON deep diff).
func diffJSON(path string, baseline, candidate interface{}) []JSONDiffEntry {
	if baseline == nil && candidate == nil {
		return nil
	}
	if baseline == nil {
		return []JSONDiffEntry{{Path: path, Status: CellMissingBaseline, Candidate: candidate}}
	}
	if candidate == nil {
		return []JSONDiffEntry{{Path: path, Status: CellMissingCandidate, Baseline: baseline}}
	}

	bm, bIsMap := baseline.(map[string]interface{})
	cm, cIsMap := candidate.(map[string]interface{})
	if bIsMap && cIsMap {
		keys := make(map[string]bool)
		for k := range bm {
			keys[k] = true
		}
		for k := range cm {
			keys[k] = true
		}
		sorted := make([]string, 0, len(keys))
		for k := range keys {
			sorted = append(sorted, k)
		}
		sort.Strings(sorted)

		var out []JSONDiffEntry
		for _, k := range sorted {
			out = append(out, diffJSON(path+"."+k, bm[k], cm[k])...)
		}
		return out
	}

	ba, bIsArr := baseline.([]interface{})
	ca, cIsArr := candidate.([]interface{})
	if bIsArr && cIsArr {
		n := len(ba)
		if len(ca) > n {
			n = len(ca)
		}
		var out []JSONDiffEntry
		for i := 0; i < n; i++ {
			var bv, cv interface{}
			if i < len(ba) {
				bv = ba[i]
			}
			if i < len(ca) {
				cv = ca[i]
			}
			out = append(out, diffJSON(pathIndex(path, i), bv, cv)...)
		}
		return out
	}

	if baseline != candidate {
		return []JSONDiffEntry{{Path: path, Status: CellMismatch, Baseline: baseline, Candidate: candidate}}
	}
	return nil
}

func pathIndex(path string, i int) string {
	return path + "[" + itoa(i) + "]"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// classifyPage rolls the comparison up to a page-level status per
// spec.md §4.8's thresholds: similarity>0.9 and no structured diffs is
// a match; similarity>0.5 and no table/pricing diffs is partial;
// anything else is a mismatch.
func classifyPage(c Comparison) PageStatus {
	hasStructuredDiff := len(c.JSONDiffs) > 0
	hasTableOrPriceDiff := false
	for _, td := range c.TableDiffs {
		for _, cell := range td.Cells {
			if cell.Status != CellMatch {
				hasTableOrPriceDiff = true
			}
		}
	}
	for _, pd := range c.PriceDiffs {
		if pd.Status != CellMatch {
			hasTableOrPriceDiff = true
		}
	}

	switch {
	case c.TextSimilarity > 0.9 && !hasStructuredDiff && !hasTableOrPriceDiff:
		return PageMatch
	case c.TextSimilarity > 0.5 && !hasTableOrPriceDiff:
		return PagePartial
	default:
		return PageMismatch
	}
}
