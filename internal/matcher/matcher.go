// Package matcher filters and ranks catalog tutors against a request.
package matcher

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/kwportal/igcse-tutor-bot/internal/catalog"
	"github.com/kwportal/igcse-tutor-bot/internal/label"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
	"github.com/kwportal/igcse-tutor-bot/internal/sliceutil"
)

// Score weights. Grade and board matches must outweigh the soft preferences.
const (
	WeightGrade   = 50
	WeightBoard   = 50
	WeightMode    = 40
	WeightLessons = 25
)

// Default result sizes.
const (
	DefaultLimit      = 4
	DefaultPerSubject = 3
)

// Match outcomes reported to metrics.
const (
	OutcomeHit      = "hit"
	OutcomeFallback = "fallback"
	OutcomeEmpty    = "empty"
)

// TieBreak orders tutors with equal scores.
type TieBreak int

const (
	// TieAlphabetical orders equal scores by name, case-insensitively,
	// and then by catalog position.
	TieAlphabetical TieBreak = iota
	// TieCatalogOrder keeps equal scores in catalog order.
	TieCatalogOrder
)

// Query describes one match request. Zero values mean "not supplied".
type Query struct {
	Subject        string
	Grade          int
	Board          string
	Mode           string // catalog.ModeOneToOne or catalog.ModeGroup
	LessonsPerWeek int
	Strict         bool
	Limit          int
}

// Result is a ranked tutor.
type Result struct {
	Tutor catalog.Tutor
	Score int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTieBreak sets the ordering for equal scores.
func WithTieBreak(tb TieBreak) Option {
	return func(m *Matcher) { m.tieBreak = tb }
}

// WithMetrics records match outcomes.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Matcher) { m.metrics = mt }
}

// WithLogger enables debug logging of match decisions.
func WithLogger(log *logger.Logger) Option {
	return func(m *Matcher) { m.log = log.WithModule("matcher") }
}

// Matcher ranks tutors from a fixed catalog. It is safe for concurrent use.
type Matcher struct {
	catalog  *catalog.Catalog
	canon    *label.Canonicalizer
	tieBreak TieBreak
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// New creates a Matcher over c.
func New(c *catalog.Catalog, canon *label.Canonicalizer, opts ...Option) *Matcher {
	m := &Matcher{catalog: c, canon: canon}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Catalog returns the catalog being searched.
func (m *Matcher) Catalog() *catalog.Catalog {
	return m.catalog
}

// Match returns up to q.Limit tutors (DefaultLimit when unset) for q.
func (m *Matcher) Match(ctx context.Context, q Query) []catalog.Tutor {
	ranked := m.Rank(ctx, q)
	out := make([]catalog.Tutor, len(ranked))
	for i, r := range ranked {
		out[i] = r.Tutor
	}
	return out
}

// Rank is Match with scores attached.
//
// Only tutors teaching the canonical subject are candidates. Under strict
// matching a candidate must also support the requested mode and weekly
// lesson count for that subject. Candidates with a positive score are
// returned best first; when none scores, every candidate is returned instead.
func (m *Matcher) Rank(ctx context.Context, q Query) []Result {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var subject string
	if q.Subject != "" {
		s, ok := m.canon.Subject(q.Subject)
		if !ok {
			m.record(OutcomeEmpty)
			return nil
		}
		subject = s
	}
	var board string
	if q.Board != "" {
		board = m.canon.Board(q.Board)
	}

	var (
		results []Result
		scored  bool
	)
	for _, t := range m.catalog.All() {
		if subject != "" && !t.TeachesSubject(subject) {
			continue
		}
		prefs := t.PrefsFor(subject)
		if q.Strict && subject != "" {
			if q.Mode != "" && !prefs.SupportsMode(q.Mode) {
				continue
			}
			if q.LessonsPerWeek != 0 && !prefs.SupportsWeekly(q.LessonsPerWeek) {
				continue
			}
		}

		score := 0
		if q.Grade != 0 && t.TeachesGrade(q.Grade) {
			score += WeightGrade
		}
		if board != "" && t.CoversBoard(board) {
			score += WeightBoard
		}
		if q.Mode != "" && prefs.SupportsMode(q.Mode) {
			score += WeightMode
		}
		if q.LessonsPerWeek != 0 && prefs.SupportsWeekly(q.LessonsPerWeek) {
			score += WeightLessons
		}
		scored = scored || score > 0
		results = append(results, Result{Tutor: t, Score: score})
	}

	switch {
	case len(results) == 0:
		m.record(OutcomeEmpty)
	case scored:
		results = slices.DeleteFunc(results, func(r Result) bool { return r.Score == 0 })
		m.record(OutcomeHit)
	default:
		m.record(OutcomeFallback)
	}

	slices.SortStableFunc(results, m.compare)
	results = sliceutil.Take(results, limit)

	if m.log != nil {
		m.log.DebugContext(ctx, "Matched tutors",
			"subject", subject,
			"grade", q.Grade,
			"board", board,
			"strict", q.Strict,
			"count", len(results),
		)
	}
	return results
}

func (m *Matcher) compare(a, b Result) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if m.tieBreak == TieAlphabetical {
		return cmp.Compare(strings.ToLower(a.Tutor.Name), strings.ToLower(b.Tutor.Name))
	}
	return 0
}

func (m *Matcher) record(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordMatch(outcome)
	}
}

// SubjectRequest is one subject of a multi-subject request together with
// the preferences chosen for it.
type SubjectRequest struct {
	Subject        string
	Mode           string
	LessonsPerWeek int
}

// CollectBest aggregates matches across subjects in request order, taking at
// most DefaultPerSubject tutors per subject, skipping tutors already
// collected, and stopping at k.
func (m *Matcher) CollectBest(ctx context.Context, subjects []string, grade int, board string, k int) []catalog.Tutor {
	reqs := make([]SubjectRequest, len(subjects))
	for i, s := range subjects {
		reqs[i] = SubjectRequest{Subject: s}
	}
	return m.CollectPreferred(ctx, reqs, grade, board, k)
}

// CollectPreferred is CollectBest with per-subject preferences. A subject
// with preferences is matched strictly first and falls back to the relaxed
// ranking when the strict pass finds nobody.
func (m *Matcher) CollectPreferred(ctx context.Context, reqs []SubjectRequest, grade int, board string, k int) []catalog.Tutor {
	if k <= 0 {
		k = DefaultLimit
	}
	seen := make(map[string]struct{}, k)
	out := make([]catalog.Tutor, 0, k)
	for _, r := range reqs {
		q := Query{
			Subject:        r.Subject,
			Grade:          grade,
			Board:          board,
			Mode:           r.Mode,
			LessonsPerWeek: r.LessonsPerWeek,
			Limit:          DefaultPerSubject,
		}
		var found []catalog.Tutor
		if r.Mode != "" || r.LessonsPerWeek != 0 {
			strict := q
			strict.Strict = true
			found = m.Match(ctx, strict)
		}
		if len(found) == 0 {
			found = m.Match(ctx, q)
		}
		for _, t := range found {
			if _, dup := seen[t.Key()]; dup {
				continue
			}
			seen[t.Key()] = struct{}{}
			out = append(out, t)
			if len(out) >= k {
				return out
			}
		}
	}
	return out
}
