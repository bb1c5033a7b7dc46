// Package sample builds the size-bounded request payload for an analysis
// call: a projected row slice (extremes by total deaths when the table is
// too big), describe-style aggregates over that slice, and the assembled
// prompt text.
package sample

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/healthgrid/govai/internal/core/table"
)

const (
	DefaultRowCap    = 150
	DefaultExtremesK = 8
)

// KeepColumns is the projection allow-list: only these survive into the
// payload, in this order. Unknown dataset columns are dropped silently.
var KeepColumns = []string{
	table.ColCity, table.ColYear,
	table.ColLiveBirths, table.ColDeathsTotal,
	table.ColDeathsM, table.ColDeathsF,
	table.ColInfants, table.ColChildren, table.ColAbove5,
}

type Budget struct {
	RowCap     int
	ExtremesK  int
	RankingKey string
}

func DefaultBudget() Budget {
	return Budget{
		RowCap:     DefaultRowCap,
		ExtremesK:  DefaultExtremesK,
		RankingKey: table.ColDeathsTotal,
	}
}

// Selection is the bounded slice handed to the prompt builder. Note carries
// the true row count so the model knows when it is looking at a truncation.
type Selection struct {
	Columns   []string
	Rows      []map[string]string
	TotalRows int
	Truncated bool
	Note      string
}

// Select projects and, when the table exceeds the row cap, truncates to the
// 2k ranking extremes. Ties keep original row order; when the ranking
// column is absent the first/last rows stand in. Deterministic for a given
// table and budget.
func Select(t *table.Table, b Budget) Selection {
	if b.RowCap <= 0 {
		b.RowCap = DefaultRowCap
	}
	if b.ExtremesK <= 0 {
		b.ExtremesK = DefaultExtremesK
	}
	if b.RankingKey == "" {
		b.RankingKey = table.ColDeathsTotal
	}

	var columns []string
	for _, c := range KeepColumns {
		if t.HasColumn(c) {
			columns = append(columns, c)
		}
	}

	n := len(t.Rows)
	sel := Selection{Columns: columns, TotalRows: n}

	if n <= b.RowCap {
		sel.Rows = t.Rows
		sel.Note = fmt.Sprintf("Dataset rows: %d.\n", n)
		return sel
	}

	sel.Truncated = true
	sel.Note = fmt.Sprintf("Full dataset: %d rows (showing top/bottom %d).\n", n, b.ExtremesK)

	if t.HasColumn(b.RankingKey) {
		sel.Rows = append(topBy(t, b.RankingKey, b.ExtremesK, true),
			topBy(t, b.RankingKey, b.ExtremesK, false)...)
	} else {
		// Degraded but still bounded.
		k := b.ExtremesK
		if k > n/2 {
			k = n / 2
		}
		sel.Rows = append(append([]map[string]string{}, t.Rows[:k]...),
			t.Rows[n-k:]...)
	}
	return sel
}

// topBy returns the k rows with the largest (or smallest) value of col,
// skipping rows missing the value, ties broken by original position.
func topBy(t *table.Table, col string, k int, largest bool) []map[string]string {
	type ranked struct {
		idx int
		val float64
	}
	var rs []ranked
	for i, row := range t.Rows {
		if v, ok := t.Float(row, col); ok {
			rs = append(rs, ranked{idx: i, val: v})
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].val != rs[j].val {
			if largest {
				return rs[i].val > rs[j].val
			}
			return rs[i].val < rs[j].val
		}
		return rs[i].idx < rs[j].idx
	})
	if len(rs) > k {
		rs = rs[:k]
	}
	out := make([]map[string]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, t.Rows[r.idx])
	}
	return out
}

// ColumnStats mirrors a pandas describe() entry.
type ColumnStats struct {
	Count float64 `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"25%"`
	Q50   float64 `json:"50%"`
	Q75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// Aggregate computes summary statistics over the selected subset only. A
// column counts as numeric when every non-missing cell parses as a number
// and at least one does.
func Aggregate(sel Selection) map[string]ColumnStats {
	out := make(map[string]ColumnStats)
	for _, col := range sel.Columns {
		values, numeric := columnValues(sel.Rows, col)
		if !numeric || len(values) == 0 {
			continue
		}
		sort.Float64s(values)

		cs := ColumnStats{
			Count: float64(len(values)),
			Mean:  stat.Mean(values, nil),
			Min:   values[0],
			Max:   values[len(values)-1],
			Q25:   quantile(values, 0.25),
			Q50:   quantile(values, 0.5),
			Q75:   quantile(values, 0.75),
		}
		if len(values) > 1 {
			cs.Std = stat.StdDev(values, nil)
		}
		out[col] = cs
	}
	return out
}

// quantile interpolates linearly between order statistics on an
// ascending-sorted slice, the way pandas describe() reports quartiles:
// rank h = (n-1)*p, value = v[⌊h⌋] + (h-⌊h⌋)*(v[⌊h⌋+1]-v[⌊h⌋]).
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

func columnValues(rows []map[string]string, col string) ([]float64, bool) {
	var values []float64
	for _, row := range rows {
		cell := row[col]
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// DefaultInstructions is the analysis instruction block prepended to every
// request payload.
const DefaultInstructions = "You are an expert public health analyst. Analyze the provided dataset " +
	"and return insights ONLY in this JSON format:\n" +
	"{'summary': str, 'interpretations': [{'text': str}], " +
	"'top_risks': [{'risk': str, 'severity': str, 'reason': str}], " +
	"'recommendations': [{'action': str, 'department': str, 'urgency': str, 'rationale': str}], " +
	"'confidence': float, 'metadata': {'source': str, 'timestamp': str}}\n" +
	"Output valid JSON only."

// BuildPrompt concatenates the instruction block, the truncation note, the
// CSV-shaped sample and the serialized aggregates into one request payload.
func BuildPrompt(sel Selection, stats map[string]ColumnStats, instructions string) string {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		statsJSON = []byte("{}")
	}
	return fmt.Sprintf("%s\n\n%sDATA SAMPLE (CSV):\n%s\nAGGREGATED_STATS: %s\nRespond with JSON only.",
		instructions, sel.Note, CSVBlob(sel), statsJSON)
}

// CSVBlob renders the selection as CSV with numeric cells rounded to two
// decimals.
func CSVBlob(sel Selection) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(sel.Columns)
	record := make([]string, len(sel.Columns))
	for _, row := range sel.Rows {
		for i, col := range sel.Columns {
			record[i] = roundCell(row[col])
		}
		w.Write(record)
	}
	w.Flush()
	return buf.String()
}

func roundCell(cell string) string {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
