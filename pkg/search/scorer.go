// Package search ranks beans against a free-text query.
//
// Scoring is case-insensitive and additive across tiers, so a bean can earn
// points for its id, title, body, tags and metadata at once. An empty query
// (after trimming) disables scoring entirely and callers keep their sort order.
package search

import (
	"strings"

	"github.com/vanderheijden86/beanwork/pkg/metrics"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
)

// Tier weights for the default scorer.
const (
	IdentityExact     = 1000
	IdentityPrefix    = 500
	IdentitySubstring = 300
	TitleExact        = 200
	TitlePrefix       = 150
	TitleSubstring    = 100
	BodyMatch         = 20
	TagMatch          = 15
	MetadataMatch     = 10
)

// Weights holds the points awarded per tier.
type Weights struct {
	IdentityExact     int `json:"identity_exact"`
	IdentityPrefix    int `json:"identity_prefix"`
	IdentitySubstring int `json:"identity_substring"`
	TitleExact        int `json:"title_exact"`
	TitlePrefix       int `json:"title_prefix"`
	TitleSubstring    int `json:"title_substring"`
	Body              int `json:"body"`
	Tag               int `json:"tag"`
	Metadata          int `json:"metadata"`
}

// DefaultWeights returns the standard tier weights.
func DefaultWeights() Weights {
	return Weights{
		IdentityExact:     IdentityExact,
		IdentityPrefix:    IdentityPrefix,
		IdentitySubstring: IdentitySubstring,
		TitleExact:        TitleExact,
		TitlePrefix:       TitlePrefix,
		TitleSubstring:    TitleSubstring,
		Body:              BodyMatch,
		Tag:               TagMatch,
		Metadata:          MetadataMatch,
	}
}

// Scorer scores beans with a fixed set of weights.
type Scorer struct {
	W Weights
}

// NewScorer returns a scorer using w.
func NewScorer(w Weights) Scorer {
	return Scorer{W: w}
}

var defaultScorer = Scorer{W: DefaultWeights()}

// Active reports whether query enables scoring.
func Active(query string) bool {
	return strings.TrimSpace(query) != ""
}

// Score returns the relevance of b for query using the default weights.
func Score(b *model.Bean, query string) int {
	return defaultScorer.Score(b, query)
}

// Scores scores every bean using the default weights. It returns nil when the
// query is inactive.
func Scores(beans []model.Bean, query string) map[string]int {
	return defaultScorer.Scores(beans, query)
}

// Rank returns a reordered copy of beans using the default weights.
func Rank(beans []model.Bean, query string, less ordering.Less) []model.Bean {
	return defaultScorer.Rank(beans, query, less)
}

// Score returns the relevance of b for query. The identity tier takes the best
// of the full id and the short code; the metadata tier counts once.
func (s Scorer) Score(b *model.Bean, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	total := max(
		tier(strings.ToLower(b.ID), q, s.W.IdentityExact, s.W.IdentityPrefix, s.W.IdentitySubstring),
		tier(strings.ToLower(b.Code()), q, s.W.IdentityExact, s.W.IdentityPrefix, s.W.IdentitySubstring),
	)
	total += tier(strings.ToLower(b.Title), q, s.W.TitleExact, s.W.TitlePrefix, s.W.TitleSubstring)

	if strings.Contains(strings.ToLower(b.Body), q) {
		total += s.W.Body
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			total += s.W.Tag
			break
		}
	}
	for _, meta := range [...]string{string(b.Status), string(b.Type), string(b.EffectivePriority())} {
		if strings.Contains(meta, q) {
			total += s.W.Metadata
			break
		}
	}
	return total
}

// Scores scores every bean, keyed by id. It returns nil when the query is
// inactive so callers can tell "no search" from "nothing matched".
func (s Scorer) Scores(beans []model.Bean, query string) map[string]int {
	if !Active(query) {
		return nil
	}
	defer metrics.Timer(metrics.Score)()
	out := make(map[string]int, len(beans))
	for i := range beans {
		out[beans[i].ID] = s.Score(&beans[i], query)
	}
	return out
}

// Rank returns a copy of beans ordered by descending score, ties broken by
// less. With an inactive query the copy keeps input order.
func (s Scorer) Rank(beans []model.Bean, query string, less ordering.Less) []model.Bean {
	out := append([]model.Bean(nil), beans...)
	scores := s.Scores(out, query)
	if scores == nil {
		return out
	}
	ordering.SortFunc(out, ordering.WithScores(scores, less))
	return out
}

// tier scores one field: exact, prefix or substring, whichever is best.
func tier(field, q string, exact, prefix, substring int) int {
	switch {
	case field == "":
		return 0
	case field == q:
		return exact
	case strings.HasPrefix(field, q):
		return prefix
	case strings.Contains(field, q):
		return substring
	default:
		return 0
	}
}
