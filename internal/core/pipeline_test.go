package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthgrid/govai/internal/config"
	"github.com/healthgrid/govai/internal/core/table"
	"github.com/healthgrid/govai/internal/store"
)

type MockLLM struct {
	Response string
	Err      error
	Calls    int
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

const batchCSV = `City Name,Year,No. of Deaths - Total,Total No. of Live Births
new delhi,2019,1200,4000
New-Delhi,2020,1350,4100
Mumbai,2019,900,3800
mumbai ,2020,950,3900
`

func testPipeline(t *testing.T, mock *MockLLM) *Pipeline {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "insights.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewPipeline(config.Default(), mock, st, nil)
}

func TestIngestCleansAndMerges(t *testing.T) {
	p := testPipeline(t, &MockLLM{Response: "{}"})
	sess, err := p.CreateSession()
	require.NoError(t, err)

	n, err := p.Ingest(sess, strings.NewReader(batchCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"Mumbai", "New Delhi"}, sess.Table.Distinct(table.ColCity))
	assert.Len(t, sess.CanonicalMap, 2)

	// Second batch merges on top without disturbing the first.
	n, err = p.Ingest(sess, strings.NewReader("City Name,Year,No. of Deaths - Total\nChennai,2020,700\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, sess.Rows())
	assert.Contains(t, sess.Table.Distinct(table.ColCity), "Chennai")
}

func TestSummaryFilters(t *testing.T) {
	p := testPipeline(t, &MockLLM{Response: "{}"})
	sess, _ := p.CreateSession()
	_, err := p.Ingest(sess, strings.NewReader(batchCSV))
	require.NoError(t, err)

	view, err := p.Summary(sess, []string{"New Delhi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Metrics.Rows)
	assert.Equal(t, 2550.0, view.Metrics.TotalDeaths)
	assert.Equal(t, []string{"Mumbai", "New Delhi"}, view.Cities)
	assert.Len(t, view.Preview, 2)
}

func TestSummaryMissingColumns(t *testing.T) {
	p := testPipeline(t, &MockLLM{Response: "{}"})
	sess, _ := p.CreateSession()
	_, err := p.Ingest(sess, strings.NewReader("Region,Deaths\nNorth,10\n"))
	require.NoError(t, err)

	_, err = p.Summary(sess, nil, nil)
	var missing *table.MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{table.ColCity, table.ColYear}, missing.Columns)
}

func TestAnalyzePersistsHistory(t *testing.T) {
	mock := &MockLLM{Response: `{"summary": "ok", "interpretations": [], "top_risks": [], "recommendations": [], "confidence": 0.8, "metadata": {}}`}
	p := testPipeline(t, mock)
	sess, _ := p.CreateSession()
	_, err := p.Ingest(sess, strings.NewReader(batchCSV))
	require.NoError(t, err)

	ctx := context.Background()
	rec, err := p.Analyze(ctx, sess, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", rec.Summary)
	assert.Equal(t, 1, mock.Calls)

	history, err := p.History(ctx, sess, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ok", history[0].Record.Summary)
}

func TestAnalyzeModelFailureYieldsRecord(t *testing.T) {
	p := testPipeline(t, &MockLLM{Err: errors.New("endpoint down")})
	sess, _ := p.CreateSession()
	_, err := p.Ingest(sess, strings.NewReader(batchCSV))
	require.NoError(t, err)

	rec, err := p.Analyze(context.Background(), sess, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, rec.Summary, "endpoint down")
	assert.Equal(t, 0.0, rec.Confidence)
}

func TestAnalyzeEmptySession(t *testing.T) {
	p := testPipeline(t, &MockLLM{Response: "{}"})
	sess, _ := p.CreateSession()

	_, err := p.Analyze(context.Background(), sess, nil, nil)
	assert.ErrorIs(t, err, table.ErrEmptyDataset)
}

func TestReingestReproducesCanonicalMap(t *testing.T) {
	p := testPipeline(t, &MockLLM{Response: "{}"})

	a, _ := p.CreateSession()
	_, err := p.Ingest(a, strings.NewReader(batchCSV))
	require.NoError(t, err)

	b, _ := p.CreateSession()
	_, err = p.Ingest(b, strings.NewReader(batchCSV))
	require.NoError(t, err)

	assert.Equal(t, a.CanonicalMap, b.CanonicalMap)
}

func TestHistoryWithoutStore(t *testing.T) {
	p := NewPipeline(config.Default(), &MockLLM{Response: "{}"}, nil, nil)
	sess, _ := p.CreateSession()

	history, err := p.History(context.Background(), sess, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
