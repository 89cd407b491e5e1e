package watch

import "fmt"

// Kind classifies a file change.
type Kind int

// Supported change kinds.
const (
	Created Kind = iota + 1
	Modified
	Deleted
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single change reported by a Watcher.
type Event struct {
	// Path is the absolute path of the changed file.
	Path string

	// Kind is the type of change.
	Kind Kind
}

func (e Event) String() string {
	return e.Kind.String() + " " + e.Path
}
