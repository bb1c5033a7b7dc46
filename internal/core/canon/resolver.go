// Package canon clusters near-duplicate entity labels (city name variants)
// into one canonical spelling per cluster. Clustering is relative to the
// batch being ingested: there is no reference list, the first spelling seen
// in a cluster becomes its representative.
package canon

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultScoreCutoff is the similarity score (0-100) at or above which two
// labels are considered the same entity.
const DefaultScoreCutoff = 90

var (
	separators = strings.NewReplacer("-", " ", "_", " ")
	spaceRuns  = regexp.MustCompile(`\s+`)
)

// Normalize removes purely cosmetic divergence from a label: trim, casefold,
// separators to spaces, collapsed whitespace, title case. Applied before any
// similarity scoring, and exact (two labels that normalize equal are the
// same label).
func Normalize(label string) string {
	s := strings.TrimSpace(label)
	s = strings.ToLower(s)
	s = separators.Replace(s)
	s = spaceRuns.ReplaceAllString(s, " ")
	// Casers are stateful; build one per call rather than sharing.
	return cases.Title(language.English).String(s)
}

type Resolver struct {
	ScoreCutoff float64
	metric      *metrics.Levenshtein
}

func NewResolver(scoreCutoff float64) *Resolver {
	if scoreCutoff <= 0 {
		scoreCutoff = DefaultScoreCutoff
	}
	return &Resolver{
		ScoreCutoff: scoreCutoff,
		metric:      metrics.NewLevenshtein(),
	}
}

// Score reports the 0-100 similarity between two normalized labels.
func (r *Resolver) Score(a, b string) float64 {
	return strutil.Similarity(a, b, r.metric) * 100
}

// Resolve builds the canonical map for one batch of observed labels,
// processed in first-occurrence order. Every normalized label gets exactly
// one entry; values are always members of the normalized input set. A label
// joins the earliest-inserted representative whose score meets the cutoff,
// otherwise it becomes a representative itself. Identical input order
// reproduces the identical map.
func (r *Resolver) Resolve(labels []string) map[string]string {
	canonical := make(map[string]string, len(labels))
	var reps []string

	for _, raw := range labels {
		label := Normalize(raw)
		if label == "" {
			continue
		}
		if _, seen := canonical[label]; seen {
			continue
		}

		best := ""
		bestScore := 0.0
		for _, rep := range reps {
			// Strictly-greater keeps the earliest rep on ties.
			if s := r.Score(label, rep); s > bestScore {
				best, bestScore = rep, s
			}
		}

		if best != "" && bestScore >= r.ScoreCutoff {
			canonical[label] = best
		} else {
			canonical[label] = label
			reps = append(reps, label)
		}
	}
	return canonical
}

// Canonical maps one observed label through an already-built batch map.
// Labels outside the batch map to their own normalized form.
func Canonical(mapping map[string]string, label string) string {
	norm := Normalize(label)
	if rep, ok := mapping[norm]; ok {
		return rep
	}
	return norm
}
