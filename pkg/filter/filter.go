// Package filter implements the two-stage filter pipeline: the pushdown part
// sent to the store and the local part applied to the records it returns.
//
// Every dimension is OR within itself and AND across dimensions. A pane's
// fixed statuses compose with the user's status choice by intersection, so a
// user filter can only narrow a pane, never widen it.
package filter

import (
	"strings"

	"github.com/vanderheijden86/beanwork/pkg/metrics"
	"github.com/vanderheijden86/beanwork/pkg/model"
)

// State is the user-chosen filter for one view. Empty slices are unconstrained.
type State struct {
	Statuses   []model.Status   `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Types      []model.Type     `json:"types,omitempty" yaml:"types,omitempty"`
	Priorities []model.Priority `json:"priorities,omitempty" yaml:"priorities,omitempty"`
	Tags       []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Search     string           `json:"search,omitempty" yaml:"search,omitempty"`
}

// Query returns the trimmed search text.
func (s State) Query() string {
	return strings.TrimSpace(s.Search)
}

// IsZero reports whether no dimension is constrained.
func (s State) IsZero() bool {
	return len(s.Statuses) == 0 && len(s.Types) == 0 && len(s.Priorities) == 0 &&
		len(s.Tags) == 0 && s.Query() == ""
}

// Update is a partial State. Nil fields keep the current value; a non-nil
// empty slice clears the dimension.
type Update struct {
	Statuses   *[]model.Status
	Types      *[]model.Type
	Priorities *[]model.Priority
	Tags       *[]string
	Search     *string
}

// With returns s with u applied.
func (s State) With(u Update) State {
	if u.Statuses != nil {
		s.Statuses = append([]model.Status(nil), (*u.Statuses)...)
	}
	if u.Types != nil {
		s.Types = append([]model.Type(nil), (*u.Types)...)
	}
	if u.Priorities != nil {
		s.Priorities = append([]model.Priority(nil), (*u.Priorities)...)
	}
	if u.Tags != nil {
		s.Tags = append([]string(nil), (*u.Tags)...)
	}
	if u.Search != nil {
		s.Search = *u.Search
	}
	return s
}

// Pipeline is the per-view filter configuration.
type Pipeline struct {
	// Fixed is the pane's permanent status constraint. Empty means all statuses.
	Fixed []model.Status
	// Local forces client-side text matching even when the store searched.
	Local bool
}

// EffectiveStatuses returns the status set the view may show: Fixed ∩ user
// when both are set, otherwise whichever is set. ok is false when the
// intersection is empty, meaning nothing can match.
func (p Pipeline) EffectiveStatuses(user []model.Status) (statuses []model.Status, ok bool) {
	switch {
	case len(p.Fixed) == 0:
		return append([]model.Status(nil), user...), true
	case len(user) == 0:
		return append([]model.Status(nil), p.Fixed...), true
	}
	for _, s := range p.Fixed {
		if containsStatus(user, s) {
			statuses = append(statuses, s)
		}
	}
	return statuses, len(statuses) > 0
}

// Pushdown returns the filter to send to the store. Search is included only
// when the store can evaluate it. ok is false when the pane's fixed statuses
// and the user's statuses do not overlap; callers should skip the store call
// and show an empty view.
func (p Pipeline) Pushdown(s State, storeSearches bool) (lf model.ListFilter, ok bool) {
	statuses, ok := p.EffectiveStatuses(s.Statuses)
	if !ok {
		return model.ListFilter{}, false
	}
	lf.Status = statuses
	lf.Type = append([]model.Type(nil), s.Types...)
	if storeSearches {
		lf.Search = s.Query()
	}
	return lf, true
}

// Apply returns the beans that pass the local stage. Status and type are
// re-checked in case the store ignored the pushdown. Text search runs here when
// it was not pushed down or when p.Local is set. The input is not modified.
func (p Pipeline) Apply(beans []model.Bean, s State, searchPushed bool) []model.Bean {
	defer metrics.Timer(metrics.Filter)()

	statuses, ok := p.EffectiveStatuses(s.Statuses)
	if !ok {
		return []model.Bean{}
	}
	query := ""
	if !searchPushed || p.Local {
		query = strings.ToLower(s.Query())
	}

	out := make([]model.Bean, 0, len(beans))
	for i := range beans {
		b := &beans[i]
		if len(statuses) > 0 && !containsStatus(statuses, b.Status) {
			continue
		}
		if len(s.Types) > 0 && !containsType(s.Types, b.Type) {
			continue
		}
		if len(s.Priorities) > 0 && !containsPriority(s.Priorities, b.EffectivePriority()) {
			continue
		}
		if len(s.Tags) > 0 && !hasAnyTag(b.Tags, s.Tags) {
			continue
		}
		if query != "" && !MatchesText(b, query) {
			continue
		}
		out = append(out, *b)
	}
	return out
}

// MatchesText reports whether the lower-cased query is a substring of any of
// the bean's id, code, slug, title, body, status, type, priority or tags.
func MatchesText(b *model.Bean, query string) bool {
	if query == "" {
		return true
	}
	fields := [...]string{
		b.ID, b.Code(), b.Slug, b.Title, b.Body,
		string(b.Status), string(b.Type), string(b.EffectivePriority()),
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func containsStatus(set []model.Status, s model.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(set []model.Type, t model.Type) bool {
	for _, v := range set {
		if v == t {
			return true
		}
	}
	return false
}

func containsPriority(set []model.Priority, p model.Priority) bool {
	for _, v := range set {
		if v.Effective() == p {
			return true
		}
	}
	return false
}

func hasAnyTag(tags, want []string) bool {
	for _, w := range want {
		for _, t := range tags {
			if strings.EqualFold(t, w) {
				return true
			}
		}
	}
	return false
}
