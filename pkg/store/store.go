// Package store defines the port through which the engine reads and updates
// beans. Concrete adapters live in subpackages: memstore (in process), beansfile
// (.beans/*.md front matter), beanscli (the beans binary) and sqlitestore.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

// BeanStore is the authoritative source of beans. Implementations must return
// copies; the engine treats every returned record as read-only.
type BeanStore interface {
	List(ctx context.Context, filter model.ListFilter) ([]model.Bean, error)
	Show(ctx context.Context, id string) (model.Bean, error)
	Update(ctx context.Context, id string, patch model.Patch) (model.Bean, error)
}

// Searcher is implemented by stores that evaluate ListFilter.Search themselves.
// Stores that do not implement it get client-side text matching.
type Searcher interface {
	SupportsSearch() bool
}

// CanSearch reports whether s evaluates free-text search server side.
func CanSearch(s BeanStore) bool {
	if sr, ok := s.(Searcher); ok {
		return sr.SupportsSearch()
	}
	return false
}

var (
	// ErrNotFound is returned when a bean id does not exist.
	ErrNotFound = errors.New("bean not found")
	// ErrConflict is returned when an update lost a race with another writer.
	ErrConflict = errors.New("bean was modified concurrently")
)

// ValidationError reports a patch the store refused.
type ValidationError struct {
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid update for %s: %s", e.ID, e.Reason)
}

// ValidatePatch runs the checks every adapter applies before writing:
// known enum values, no self-parenting and a parent type that accepts the child.
// lookup resolves referenced beans; it may be nil when the adapter cannot resolve.
func ValidatePatch(current model.Bean, patch model.Patch, lookup func(id string) (model.Bean, bool)) error {
	var problems []string
	if patch.Status != nil && !patch.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", *patch.Status))
	}
	if patch.Type != nil && !patch.Type.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown type %q", *patch.Type))
	}
	if patch.Priority != nil && !patch.Priority.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown priority %q", *patch.Priority))
	}
	if patch.ParentID != nil && !patch.ClearParent {
		parentID := *patch.ParentID
		switch {
		case parentID == current.ID:
			problems = append(problems, "a bean cannot be its own parent")
		case lookup != nil:
			parent, ok := lookup(parentID)
			if !ok {
				problems = append(problems, fmt.Sprintf("parent %s does not exist", parentID))
				break
			}
			childType := current.Type
			if patch.Type != nil {
				childType = *patch.Type
			}
			if !model.CanParent(parent.Type, childType) {
				problems = append(problems, fmt.Sprintf("a %s cannot contain a %s", parent.Type, childType))
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{ID: current.ID, Reason: strings.Join(problems, "; ")}
	}
	return nil
}
