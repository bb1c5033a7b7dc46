package insight

// Record is the normalized result of one analysis call. Every field is
// populated on every path, including total failure, so consumers never
// null-check.
type Record struct {
	Summary         string            `json:"summary"`
	Interpretations []Interpretation  `json:"interpretations"`
	TopRisks        []Risk            `json:"top_risks"`
	Recommendations []Recommendation  `json:"recommendations"`
	Confidence      float64           `json:"confidence"`
	Metadata        map[string]string `json:"metadata"`
	RawText         string            `json:"raw_text"`
}

type Interpretation struct {
	Text string `json:"text"`
}

type Risk struct {
	Risk     string `json:"risk"`
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

type Recommendation struct {
	Action     string `json:"action"`
	Department string `json:"department"`
	Urgency    string `json:"urgency"`
	Rationale  string `json:"rationale"`
}
