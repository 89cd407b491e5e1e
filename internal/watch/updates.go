package watch

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// PathUpdates is an immutable set of pending path changes. A path is a
// member of at most one of the created, modified and deleted sets.
//
// The zero value is an empty set. The With* methods never modify the
// receiver; they return a new value.
type PathUpdates struct {
	created  map[string]struct{}
	modified map[string]struct{}
	deleted  map[string]struct{}
}

// With folds a single event into the set according to its kind.
func (u PathUpdates) With(e Event) PathUpdates {
	switch e.Kind {
	case Created:
		return u.WithCreated(e.Path)
	case Modified:
		return u.WithModified(e.Path)
	case Deleted:
		return u.WithDeleted(e.Path)
	default:
		return u
	}
}

// WithCreated marks path as created.
func (u PathUpdates) WithCreated(path string) PathUpdates {
	return PathUpdates{
		created:  plus(u.created, path),
		modified: minus(u.modified, path),
		deleted:  minus(u.deleted, path),
	}
}

// WithModified marks path as modified. A path created within the same
// batch stays created.
func (u PathUpdates) WithModified(path string) PathUpdates {
	if _, ok := u.created[path]; ok {
		return u
	}

	return PathUpdates{
		created:  u.created,
		modified: plus(u.modified, path),
		deleted:  minus(u.deleted, path),
	}
}

// WithDeleted marks path as deleted.
func (u PathUpdates) WithDeleted(path string) PathUpdates {
	return PathUpdates{
		created:  minus(u.created, path),
		modified: minus(u.modified, path),
		deleted:  plus(u.deleted, path),
	}
}

// Created returns the created paths in lexical order.
func (u PathUpdates) Created() []string { return sortedKeys(u.created) }

// Modified returns the modified paths in lexical order.
func (u PathUpdates) Modified() []string { return sortedKeys(u.modified) }

// Deleted returns the deleted paths in lexical order.
func (u PathUpdates) Deleted() []string { return sortedKeys(u.deleted) }

// Len returns the total number of paths in the set.
func (u PathUpdates) Len() int {
	return len(u.created) + len(u.modified) + len(u.deleted)
}

// IsEmpty reports whether the set holds no paths.
func (u PathUpdates) IsEmpty() bool { return u.Len() == 0 }

// String renders the set as created=[...] modified=[...] deleted=[...].
func (u PathUpdates) String() string {
	var b strings.Builder

	b.WriteString("created=[")
	b.WriteString(strings.Join(u.Created(), ", "))
	b.WriteString("] modified=[")
	b.WriteString(strings.Join(u.Modified(), ", "))
	b.WriteString("] deleted=[")
	b.WriteString(strings.Join(u.Deleted(), ", "))
	b.WriteString("]")

	return b.String()
}

// LogValue implements slog.LogValuer.
func (u PathUpdates) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("created", u.Created()),
		slog.Any("modified", u.Modified()),
		slog.Any("deleted", u.Deleted()),
	)
}

// plus returns a copy of set with path added. The input is never modified,
// which keeps previously returned PathUpdates values intact.
func plus(set map[string]struct{}, path string) map[string]struct{} {
	if _, ok := set[path]; ok {
		return set
	}

	next := make(map[string]struct{}, len(set)+1)
	maps.Copy(next, set)
	next[path] = struct{}{}

	return next
}

func minus(set map[string]struct{}, path string) map[string]struct{} {
	if _, ok := set[path]; !ok {
		return set
	}

	next := maps.Clone(set)
	delete(next, path)

	return next
}

func sortedKeys(set map[string]struct{}) []string {
	keys := slices.Collect(maps.Keys(set))
	slices.Sort(keys)

	if keys == nil {
		return []string{}
	}

	return keys
}
