//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthgrid/govai/internal/config"
	"github.com/healthgrid/govai/internal/core"
	"github.com/healthgrid/govai/internal/llm"
	"github.com/healthgrid/govai/internal/store"
)

const liveCSV = `City Name,Year,No. of Deaths - Total,Total No. of Live Births,No. of Deaths - Infants (0-1 year)
new delhi,2019,1200,4000,90
New-Delhi,2020,1350,4100,85
Mumbai,2019,900,3800,70
mumbai ,2020,950,3900,72
Chennai,2019,700,3200,60
Chennai,2020,720,3300,58
`

// TestLiveAnalysis exercises the full pipeline against a real provider.
// Set LLM_PROVIDER / LLM_MODEL / LLM_API_KEY (or GEMINI_API_KEY) to run it.
func TestLiveAnalysis(t *testing.T) {
	_ = godotenv.Load("../../.env")

	cfg := config.Default()
	cfg.ApplyEnv()
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "ollama" {
		t.Skip("Skipping integration test: no LLM API key configured")
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, cfg.LLM)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "insights.db"))
	require.NoError(t, err)
	defer st.Close()

	log, _ := zap.NewDevelopment()
	p := core.NewPipeline(cfg, client, st, log)

	sess, err := p.CreateSession()
	require.NoError(t, err)

	n, err := p.Ingest(sess, strings.NewReader(liveCSV))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	rec, err := p.Analyze(ctx, sess, nil, nil)
	require.NoError(t, err)

	// Whatever the model answered, the record is fully populated.
	assert.NotNil(t, rec.Interpretations)
	assert.NotNil(t, rec.TopRisks)
	assert.NotNil(t, rec.Recommendations)
	assert.NotEmpty(t, rec.Metadata["timestamp"])
	assert.NotEmpty(t, rec.RawText)

	history, err := p.History(ctx, sess, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	if os.Getenv("VERBOSE") != "" {
		t.Logf("summary: %s", rec.Summary)
	}
}
