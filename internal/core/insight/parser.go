package insight

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	fallbackSummaryRunes  = 400
	fallbackMaxLines      = 5
	fallbackMinLineLength = 20

	// Metadata note left on records recovered through the heuristic tier.
	FallbackNote = "fallback parsed"
)

// Parse converts a raw model response into a Record through three tiers:
// parse the whole text as JSON; parse the first-'{'-to-last-'}' span; and
// finally synthesize a record from the plain text. No tier lets a parse
// failure escape to the caller.
func Parse(text string) Record {
	if text == "" {
		return emptyRecord()
	}

	if doc, err := decode(text); err == nil {
		return normalize(doc, text)
	}

	if span, ok := braceSpan(text); ok {
		if doc, err := decode(span); err == nil {
			return normalize(doc, text)
		}
	}

	return fallback(text)
}

// braceSpan slices from the first '{' to the last '}', inclusive. Multiple
// independent JSON blocks over-capture here; the slice then fails to decode
// and the heuristic tier takes over.
func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return "", false
	}
	return text[start : end+1], true
}

func decode(s string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// normalize coerces a decoded document into the Record shape. List entries
// that arrive as bare scalars are wrapped ({text: v} for interpretations,
// {action: v} for recommendations) so callers never branch on item shape.
func normalize(doc map[string]any, raw string) Record {
	rec := Record{
		Summary:         asString(doc["summary"]),
		Interpretations: []Interpretation{},
		TopRisks:        []Risk{},
		Recommendations: []Recommendation{},
		Confidence:      asFloat(doc["confidence"]),
		Metadata:        asMetadata(doc["metadata"]),
		RawText:         raw,
	}

	if items, ok := doc["interpretations"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				rec.Interpretations = append(rec.Interpretations, Interpretation{Text: asString(m["text"])})
			} else {
				rec.Interpretations = append(rec.Interpretations, Interpretation{Text: asString(item)})
			}
		}
	}

	if items, ok := doc["top_risks"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				rec.TopRisks = append(rec.TopRisks, Risk{
					Risk:     asString(m["risk"]),
					Severity: asString(m["severity"]),
					Reason:   asString(m["reason"]),
				})
			} else {
				rec.TopRisks = append(rec.TopRisks, Risk{Risk: asString(item)})
			}
		}
	}

	if items, ok := doc["recommendations"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				rec.Recommendations = append(rec.Recommendations, Recommendation{
					Action:     asString(m["action"]),
					Department: asString(m["department"]),
					Urgency:    asString(m["urgency"]),
					Rationale:  asString(m["rationale"]),
				})
			} else {
				rec.Recommendations = append(rec.Recommendations, Recommendation{Action: asString(item)})
			}
		}
	}

	if _, ok := rec.Metadata["timestamp"]; !ok {
		rec.Metadata["timestamp"] = timestamp()
	}
	return rec
}

// fallback synthesizes a record from free text: a truncated summary plus up
// to five substantial lines as interpretations.
func fallback(text string) Record {
	rec := emptyRecord()
	rec.Summary = truncateRunes(text, fallbackSummaryRunes)
	rec.RawText = text
	rec.Metadata["note"] = FallbackNote

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-* \t"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > fallbackMaxLines {
		lines = lines[:fallbackMaxLines]
	}
	for _, line := range lines {
		if len(line) > fallbackMinLineLength {
			rec.Interpretations = append(rec.Interpretations, Interpretation{Text: line})
		}
	}
	return rec
}

func emptyRecord() Record {
	return Record{
		Interpretations: []Interpretation{},
		TopRisks:        []Risk{},
		Recommendations: []Recommendation{},
		Metadata:        map[string]string{"timestamp": timestamp()},
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// JSON numbers decode to float64; render integers without a dot.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

func asFloat(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func asMetadata(v any) map[string]string {
	out := map[string]string{}
	if m, ok := v.(map[string]any); ok {
		for k, val := range m {
			out[k] = asString(val)
		}
	}
	return out
}
