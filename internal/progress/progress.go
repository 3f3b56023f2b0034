// Package progress defines the display collaborator the orchestrator feeds
// every message to, deliberately out of scope per spec.md §1 ("the terminal
// progress display" is listed among the external collaborators). It exists
// only as a seam: the default terminal renderer lives in internal/tui.
package progress

// Display receives every message the orchestrator's Pool produces, in
// arrival order, for rendering. Implementations must not block: a slow or
// stalled Display would stall the orchestrator's single consumer loop.
type Display interface {
	Handle(message interface{})
}

// Null discards every message. The zero value is ready to use.
type Null struct{}

func (Null) Handle(interface{}) {}
