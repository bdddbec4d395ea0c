// Package model defines the bean record and the enums the engine ranks and
// validates against.
package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a bean.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusScrapped   Status = "scrapped"
)

// Statuses lists every known status in rank order.
var Statuses = []Status{StatusInProgress, StatusTodo, StatusDraft, StatusCompleted, StatusScrapped}

func (s Status) String() string { return string(s) }

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusTodo, StatusInProgress, StatusCompleted, StatusScrapped:
		return true
	}
	return false
}

// Rank orders statuses for sorting. Lower sorts first:
// in-progress → todo → draft → completed → scrapped. Unknown values sort last.
func (s Status) Rank() int {
	switch s {
	case StatusInProgress:
		return 0
	case StatusTodo:
		return 1
	case StatusDraft:
		return 2
	case StatusCompleted:
		return 3
	case StatusScrapped:
		return 4
	default:
		return 5
	}
}

// IsClosed reports whether the bean no longer needs work.
func (s Status) IsClosed() bool {
	return s == StatusCompleted || s == StatusScrapped
}

// Type classifies a bean within the hierarchy.
type Type string

const (
	TypeMilestone Type = "milestone"
	TypeEpic      Type = "epic"
	TypeFeature   Type = "feature"
	TypeBug       Type = "bug"
	TypeTask      Type = "task"
)

// Types lists every known type in rank order.
var Types = []Type{TypeMilestone, TypeEpic, TypeFeature, TypeBug, TypeTask}

func (t Type) String() string { return string(t) }

// IsValid reports whether t is one of the known types.
func (t Type) IsValid() bool {
	switch t {
	case TypeMilestone, TypeEpic, TypeFeature, TypeBug, TypeTask:
		return true
	}
	return false
}

// Rank orders types for sorting: milestone → epic → feature → bug → task.
func (t Type) Rank() int {
	switch t {
	case TypeMilestone:
		return 0
	case TypeEpic:
		return 1
	case TypeFeature:
		return 2
	case TypeBug:
		return 3
	case TypeTask:
		return 4
	default:
		return 5
	}
}

// allowedChildren is the fixed parent → child type table.
var allowedChildren = map[Type][]Type{
	TypeMilestone: {TypeEpic},
	TypeEpic:      {TypeFeature, TypeBug, TypeTask},
	TypeFeature:   {TypeTask},
}

// CanParent reports whether a bean of type parent may have a child of type child.
// Bugs and tasks are leaves.
func CanParent(parent, child Type) bool {
	for _, t := range allowedChildren[parent] {
		if t == child {
			return true
		}
	}
	return false
}

// AllowedChildren returns the child types a parent type accepts.
func AllowedChildren(parent Type) []Type {
	return append([]Type(nil), allowedChildren[parent]...)
}

// Priority is the optional urgency of a bean. The empty value means normal.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
	PriorityDeferred Priority = "deferred"
)

// Priorities lists every known priority in rank order.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow, PriorityDeferred}

func (p Priority) String() string { return string(p) }

// IsValid reports whether p is a known priority. Empty is valid (normal).
func (p Priority) IsValid() bool {
	switch p {
	case "", PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow, PriorityDeferred:
		return true
	}
	return false
}

// Effective returns p, or normal when p is unset.
func (p Priority) Effective() Priority {
	if p == "" {
		return PriorityNormal
	}
	return p
}

// Rank orders priorities: critical 0 … deferred 4, unset counts as normal.
func (p Priority) Rank() int {
	switch p.Effective() {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	case PriorityDeferred:
		return 4
	default:
		return 5
	}
}

// Bean is a read-only snapshot of one work item as returned by a store.
type Bean struct {
	ID           string    `json:"id" yaml:"-"`
	Slug         string    `json:"slug,omitempty" yaml:"-"`
	Title        string    `json:"title" yaml:"title"`
	Status       Status    `json:"status" yaml:"status"`
	Type         Type      `json:"type" yaml:"type"`
	Priority     Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Tags         []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	ParentID     string    `json:"parent_id,omitempty" yaml:"parent,omitempty"`
	BlockingIDs  []string  `json:"blocking_ids,omitempty" yaml:"blocking,omitempty"`
	BlockedByIDs []string  `json:"blocked_by_ids,omitempty" yaml:"blocked_by,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
	Body         string    `json:"body,omitempty" yaml:"-"`

	// Blocked is set by augmentation when an open bean blocks this one.
	// It is never read from or written to a store.
	Blocked bool `json:"-" yaml:"-"`
}

// Code returns the short code: the ID without its project prefix.
func (b *Bean) Code() string {
	if i := strings.LastIndex(b.ID, "-"); i >= 0 && i < len(b.ID)-1 {
		return b.ID[i+1:]
	}
	return b.ID
}

// EffectivePriority returns the bean's priority, treating unset as normal.
func (b *Bean) EffectivePriority() Priority {
	return b.Priority.Effective()
}

// HasParent reports whether the bean references a parent.
func (b *Bean) HasParent() bool {
	return b.ParentID != ""
}

// Clone returns a deep copy so callers can never alias slices of a store record.
func (b Bean) Clone() Bean {
	b.Tags = cloneStrings(b.Tags)
	b.BlockingIDs = cloneStrings(b.BlockingIDs)
	b.BlockedByIDs = cloneStrings(b.BlockedByIDs)
	return b
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
