// Package domain holds small value types shared by every registry.
package domain

// Change reports whether a mutation altered stored state.
type Change int

const (
	Unchanged Change = iota
	Changed
)

// ChangeOf converts a boolean into a Change.
func ChangeOf(changed bool) Change {
	if changed {
		return Changed
	}
	return Unchanged
}

// IsChanged returns true if the mutation altered stored state.
func (c Change) IsChanged() bool {
	return c == Changed
}

// Or combines two outcomes; the result is Changed if either is.
func (c Change) Or(other Change) Change {
	return ChangeOf(c.IsChanged() || other.IsChanged())
}

func (c Change) String() string {
	if c == Changed {
		return "changed"
	}
	return "unchanged"
}

// MergeResult reports whether a create-or-update created a new record.
type MergeResult int

const (
	Created MergeResult = iota + 1
	Updated
)

func (r MergeResult) String() string {
	switch r {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}
