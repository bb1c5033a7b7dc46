package insight

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/healthgrid/govai/internal/core/sample"
	"github.com/healthgrid/govai/internal/core/table"
	"github.com/healthgrid/govai/internal/llm"
)

const (
	DefaultAnalysisRows = 20
	DefaultSampleSeed   = 42
)

// Analyzer runs one analysis round-trip: draw a reproducible row sample,
// build the budgeted prompt, call the model once, and parse whatever comes
// back. Call failures are absorbed into an error-shaped Record; the only
// error returned upward is the absence of input data.
type Analyzer struct {
	LLM          llm.Client
	Budget       sample.Budget
	AnalysisRows int
	SampleSeed   int64
	Instructions string
	Source       string
}

func NewAnalyzer(client llm.Client, budget sample.Budget) *Analyzer {
	return &Analyzer{
		LLM:          client,
		Budget:       budget,
		AnalysisRows: DefaultAnalysisRows,
		SampleSeed:   DefaultSampleSeed,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, t *table.Table) (Record, error) {
	if t == nil || len(t.Rows) == 0 {
		return Record{}, table.ErrEmptyDataset
	}

	drawn := a.drawRows(t)
	sel := sample.Select(drawn, a.Budget)
	stats := sample.Aggregate(sel)
	prompt := sample.BuildPrompt(sel, stats, a.Instructions)

	response, err := a.LLM.Generate(ctx, prompt)
	if err != nil {
		return a.errorRecord(err), nil
	}

	rec := Parse(response)
	if _, ok := rec.Metadata["source"]; !ok {
		rec.Metadata["source"] = a.source()
	}
	return rec, nil
}

// drawRows takes a fixed-seed random sample of at most AnalysisRows rows,
// so repeated requests over the same table produce the same payload.
func (a *Analyzer) drawRows(t *table.Table) *table.Table {
	n := a.AnalysisRows
	if n <= 0 {
		n = DefaultAnalysisRows
	}
	if len(t.Rows) <= n {
		return t
	}
	rng := rand.New(rand.NewSource(a.SampleSeed))
	perm := rng.Perm(len(t.Rows))[:n]

	out := &table.Table{Headers: t.Headers}
	for _, i := range perm {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

func (a *Analyzer) errorRecord(err error) Record {
	raw := fmt.Sprintf("Error calling %s API: %v", a.source(), err)
	rec := emptyRecord()
	rec.Summary = raw
	rec.RawText = raw
	rec.Metadata["source"] = a.source()
	rec.Metadata["error"] = err.Error()
	return rec
}

func (a *Analyzer) source() string {
	if a.Source != "" {
		return a.Source
	}
	return "model"
}
