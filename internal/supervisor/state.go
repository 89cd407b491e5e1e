package supervisor

import "fmt"

// State is the lifecycle state of the supervised application.
type State int

const (
	// Stopped means no instance exists.
	Stopped State = iota
	// Starting means an instance is being launched.
	Starting
	// Running means an instance is alive.
	Running
	// Stopping means an instance has been interrupted and is being awaited.
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
