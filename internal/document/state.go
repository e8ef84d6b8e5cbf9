package document

import "fmt"

// State is the position of a document in its build lifecycle. A document
// only ever moves forward, one state at a time.
type State int

const (
	Discovered State = iota
	ScriptsRegistered
	ClientResolved
	StaticResolved
	Finalized
)

var stateNames = [...]string{"discovered", "scripts_registered", "client_resolved", "static_resolved", "finalized"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Next returns the state following s.
func (s State) Next() State {
	if s >= Finalized {
		return Finalized
	}
	return s + 1
}
