package insight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirectJSON(t *testing.T) {
	text := `{"summary": "deaths rising", "interpretations": [{"text": "infant mortality up"}],
		"top_risks": [{"risk": "heatwave", "severity": "high", "reason": "summer peak"}],
		"recommendations": [{"action": "expand clinics", "department": "Health", "urgency": "high", "rationale": "capacity"}],
		"confidence": 0.8, "metadata": {"source": "model"}}`

	rec := Parse(text)
	assert.Equal(t, "deaths rising", rec.Summary)
	require.Len(t, rec.Interpretations, 1)
	assert.Equal(t, "infant mortality up", rec.Interpretations[0].Text)
	require.Len(t, rec.TopRisks, 1)
	assert.Equal(t, "heatwave", rec.TopRisks[0].Risk)
	require.Len(t, rec.Recommendations, 1)
	assert.Equal(t, "expand clinics", rec.Recommendations[0].Action)
	assert.Equal(t, 0.8, rec.Confidence)
	assert.Equal(t, "model", rec.Metadata["source"])
	assert.NotEmpty(t, rec.Metadata["timestamp"])
	assert.Equal(t, text, rec.RawText)
}

func TestParseSubstringExtraction(t *testing.T) {
	text := `Here is the result: {"summary": "ok", "interpretations": [], "top_risks": [], "recommendations": [], "confidence": 0.8, "metadata": {}}`

	rec := Parse(text)
	assert.Equal(t, "ok", rec.Summary)
	assert.Equal(t, 0.8, rec.Confidence)
	assert.Empty(t, rec.Interpretations)
	assert.Equal(t, text, rec.RawText, "raw_text keeps the full response, not the extracted span")
}

func TestParseHeuristicFallback(t *testing.T) {
	text := "The data looks fine overall for this year.\n- Risk A is low but worth watching closely.\n- Risk B needs review by the health department.\n"

	rec := Parse(text)
	assert.Equal(t, FallbackNote, rec.Metadata["note"])
	assert.Equal(t, 0.0, rec.Confidence)
	require.Len(t, rec.Interpretations, 3)
	assert.Equal(t, "Risk A is low but worth watching closely.", rec.Interpretations[1].Text)
	assert.Equal(t, "Risk B needs review by the health department.", rec.Interpretations[2].Text)
	assert.Empty(t, rec.TopRisks)
	assert.Empty(t, rec.Recommendations)
	assert.Equal(t, text, rec.RawText)
}

func TestParseEmptyInput(t *testing.T) {
	rec := Parse("")
	assert.Equal(t, "", rec.Summary)
	assert.NotNil(t, rec.Interpretations)
	assert.NotNil(t, rec.TopRisks)
	assert.NotNil(t, rec.Recommendations)
	assert.NotEmpty(t, rec.Metadata["timestamp"])
	assert.Equal(t, 0.0, rec.Confidence)
}

// Every input, structured or not, yields all top-level fields.
func TestParseTotalCoverage(t *testing.T) {
	inputs := []string{
		"", "plain text", "{broken json", "}{", "{}",
		`{"summary": 42}`, "{\n}garbage{\n}",
		strings.Repeat("x", 1000),
	}
	for _, in := range inputs {
		rec := Parse(in)
		assert.NotNil(t, rec.Interpretations, "input %q", in)
		assert.NotNil(t, rec.TopRisks, "input %q", in)
		assert.NotNil(t, rec.Recommendations, "input %q", in)
		assert.NotNil(t, rec.Metadata, "input %q", in)
	}
}

func TestParseFallbackBounds(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString("- this bullet line is certainly longer than twenty characters\n")
	}
	sb.WriteString(strings.Repeat("y", 600))

	rec := Parse(sb.String())
	assert.LessOrEqual(t, len(rec.Interpretations), 5)
	assert.LessOrEqual(t, len([]rune(rec.Summary)), 400)
}

func TestParseShortLinesExcluded(t *testing.T) {
	rec := Parse("short\n- tiny\nthis line is long enough to be kept as an interpretation\n")
	require.Len(t, rec.Interpretations, 1)
	assert.Equal(t, "this line is long enough to be kept as an interpretation", rec.Interpretations[0].Text)
}

func TestParseScalarListItemsWrapped(t *testing.T) {
	text := `{"summary": "s", "interpretations": ["plain finding", {"text": "shaped finding"}],
		"recommendations": ["do the thing"], "top_risks": ["flood"], "confidence": 1, "metadata": {}}`

	rec := Parse(text)
	require.Len(t, rec.Interpretations, 2)
	assert.Equal(t, "plain finding", rec.Interpretations[0].Text)
	assert.Equal(t, "shaped finding", rec.Interpretations[1].Text)
	require.Len(t, rec.Recommendations, 1)
	assert.Equal(t, "do the thing", rec.Recommendations[0].Action)
	require.Len(t, rec.TopRisks, 1)
	assert.Equal(t, "flood", rec.TopRisks[0].Risk)
}

// Two independent JSON blocks over-capture into one invalid span; the
// heuristic tier handles it. Preserved behavior, not a bug to fix.
func TestParseMultipleBlocksFallToHeuristic(t *testing.T) {
	text := `{"summary": "first"} and then {"summary": "second"}`
	rec := Parse(text)
	assert.Equal(t, FallbackNote, rec.Metadata["note"])
	assert.Equal(t, text, rec.RawText)
}

func TestParseMarkdownFencedJSON(t *testing.T) {
	text := "```json\n{\"summary\": \"fenced\", \"interpretations\": [], \"top_risks\": [], \"recommendations\": [], \"confidence\": 0.5, \"metadata\": {}}\n```"
	rec := Parse(text)
	assert.Equal(t, "fenced", rec.Summary)
	assert.Equal(t, 0.5, rec.Confidence)
}
