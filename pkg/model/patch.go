package model

import "slices"

// ListFilter holds the filter dimensions a store evaluates before records
// reach the engine. Empty slices mean the dimension is unconstrained.
type ListFilter struct {
	Status []Status `json:"status,omitempty"`
	Type   []Type   `json:"type,omitempty"`
	Search string   `json:"search,omitempty"`
}

// Patch describes an update to a bean. Nil pointer fields mean "don't change".
type Patch struct {
	Status          *Status   `json:"status,omitempty"`
	Type            *Type     `json:"type,omitempty"`
	Priority        *Priority `json:"priority,omitempty"`
	ParentID        *string   `json:"parent_id,omitempty"`
	ClearParent     bool      `json:"clear_parent,omitempty"`
	AddBlocking     []string  `json:"add_blocking,omitempty"`
	RemoveBlocking  []string  `json:"remove_blocking,omitempty"`
	AddBlockedBy    []string  `json:"add_blocked_by,omitempty"`
	RemoveBlockedBy []string  `json:"remove_blocked_by,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.Type == nil && p.Priority == nil && p.ParentID == nil &&
		!p.ClearParent &&
		len(p.AddBlocking) == 0 && len(p.RemoveBlocking) == 0 &&
		len(p.AddBlockedBy) == 0 && len(p.RemoveBlockedBy) == 0
}

// Apply returns a copy of b with the patch applied. ClearParent wins over ParentID.
// Stores that keep records in process use it; remote stores send the patch as-is.
func (p Patch) Apply(b Bean) Bean {
	out := b.Clone()
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.ParentID != nil {
		out.ParentID = *p.ParentID
	}
	if p.ClearParent {
		out.ParentID = ""
	}
	out.BlockingIDs = editSet(out.BlockingIDs, p.AddBlocking, p.RemoveBlocking)
	out.BlockedByIDs = editSet(out.BlockedByIDs, p.AddBlockedBy, p.RemoveBlockedBy)
	return out
}

func editSet(set, add, remove []string) []string {
	for _, id := range add {
		if id != "" && !slices.Contains(set, id) {
			set = append(set, id)
		}
	}
	if len(remove) == 0 {
		return set
	}
	kept := set[:0:0]
	for _, id := range set {
		if !slices.Contains(remove, id) {
			kept = append(kept, id)
		}
	}
	return kept
}
