// Package core wires the ingestion and analysis pipeline together and owns
// the per-session dataset state.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthgrid/govai/internal/config"
	"github.com/healthgrid/govai/internal/core/canon"
	"github.com/healthgrid/govai/internal/core/insight"
	"github.com/healthgrid/govai/internal/core/sample"
	"github.com/healthgrid/govai/internal/core/table"
	"github.com/healthgrid/govai/internal/llm"
	"github.com/healthgrid/govai/internal/store"
)

// Session owns one user's dataset. A session sees only its own table and
// canonical map, so pipeline operations on it need no locking of their own.
type Session struct {
	ID           string
	Table        *table.Table
	CanonicalMap map[string]string
}

type Pipeline struct {
	cfg      *config.Config
	llm      llm.Client
	store    *store.Store
	analyzer *insight.Analyzer
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewPipeline(cfg *config.Config, client llm.Client, st *store.Store, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	analyzer := insight.NewAnalyzer(client, sample.Budget{
		RowCap:     cfg.Pipeline.RowCap,
		ExtremesK:  cfg.Pipeline.ExtremesK,
		RankingKey: table.ColDeathsTotal,
	})
	analyzer.AnalysisRows = cfg.Pipeline.AnalysisRows
	analyzer.SampleSeed = cfg.Pipeline.SampleSeed
	analyzer.Instructions = cfg.Pipeline.Instructions
	analyzer.Source = cfg.LLM.Provider

	return &Pipeline{
		cfg:      cfg,
		llm:      client,
		store:    st,
		analyzer: analyzer,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// CreateSession opens a session, bootstrapping it from the configured
// default dataset when one is set.
func (p *Pipeline) CreateSession() (*Session, error) {
	sess := &Session{
		ID:           uuid.NewString(),
		CanonicalMap: map[string]string{},
	}

	if path := p.cfg.Server.DatasetPath; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open default dataset '%s': %w", path, err)
		}
		defer f.Close()
		if _, err := p.Ingest(sess, f); err != nil {
			return nil, fmt.Errorf("failed to ingest default dataset: %w", err)
		}
	}

	p.mu.Lock()
	p.sessions[sess.ID] = sess
	p.mu.Unlock()

	p.log.Info("session created", zap.String("session", sess.ID), zap.Int("rows", sess.Rows()))
	return sess, nil
}

func (p *Pipeline) Session(id string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[id]
	return sess, ok
}

func (s *Session) Rows() int {
	if s.Table == nil {
		return 0
	}
	return len(s.Table.Rows)
}

// Ingest cleans one CSV batch (canonical city labels, numeric coercion) and
// merges it into the session's table. The batch's canonical map replaces
// the session's previous one; the merged table is a new value, never a
// mutation of the old.
func (p *Pipeline) Ingest(sess *Session, r io.Reader) (int, error) {
	batch, err := table.ReadCSV(r)
	if err != nil {
		return 0, err
	}

	resolver := canon.NewResolver(p.cfg.Pipeline.ScoreCutoff)
	mapping := batch.Canonicalize(resolver)
	batch.RewriteNumeric(table.NumericColumns...)

	sess.Table = table.Merge(sess.Table, batch)
	sess.CanonicalMap = mapping

	p.log.Info("batch ingested",
		zap.String("session", sess.ID),
		zap.Int("batch_rows", len(batch.Rows)),
		zap.Int("total_rows", sess.Rows()),
		zap.Int("canonical_labels", len(mapping)))
	return len(batch.Rows), nil
}

// SummaryView is what the dashboard needs to render a filtered table.
type SummaryView struct {
	Cities  []string            `json:"cities"`
	Years   []string            `json:"years"`
	Metrics table.Metrics       `json:"metrics"`
	Preview []map[string]string `json:"preview"`
}

const previewRows = 20

// Summary filters the session's table and computes the headline metrics.
// Missing required columns surface as a MissingColumnsError for the caller
// to gate features on.
func (p *Pipeline) Summary(sess *Session, cities, years []string) (SummaryView, error) {
	if sess.Table == nil || len(sess.Table.Rows) == 0 {
		return SummaryView{}, table.ErrEmptyDataset
	}
	if err := sess.Table.RequireColumns(table.ColCity, table.ColYear); err != nil {
		return SummaryView{}, err
	}

	filtered := sess.Table.Filter(cities, years)
	preview := filtered.Rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}
	if preview == nil {
		preview = []map[string]string{}
	}

	return SummaryView{
		Cities:  sess.Table.Distinct(table.ColCity),
		Years:   sess.Table.Distinct(table.ColYear),
		Metrics: filtered.Summary(),
		Preview: preview,
	}, nil
}

// Analyze runs one analysis round-trip over the filtered view and persists
// the result. The returned record is valid even when the model call or the
// response parse failed; only an empty dataset is an error.
func (p *Pipeline) Analyze(ctx context.Context, sess *Session, cities, years []string) (insight.Record, error) {
	if sess.Table == nil || len(sess.Table.Rows) == 0 {
		return insight.Record{}, table.ErrEmptyDataset
	}

	filtered := sess.Table.Filter(cities, years)
	rec, err := p.analyzer.Analyze(ctx, filtered)
	if err != nil {
		return insight.Record{}, err
	}

	if p.store != nil {
		if _, err := p.store.Save(ctx, sess.ID, rec); err != nil {
			// History is best-effort; the analysis itself succeeded.
			p.log.Warn("failed to persist insight", zap.String("session", sess.ID), zap.Error(err))
		}
	}

	p.log.Info("analysis completed",
		zap.String("session", sess.ID),
		zap.Int("rows_analyzed", len(filtered.Rows)),
		zap.Float64("confidence", rec.Confidence))
	return rec, nil
}

// History lists a session's stored insights, newest first.
func (p *Pipeline) History(ctx context.Context, sess *Session, limit int) ([]store.SavedInsight, error) {
	if p.store == nil {
		return []store.SavedInsight{}, nil
	}
	return p.store.List(ctx, sess.ID, limit)
}
