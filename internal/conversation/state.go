package conversation

import "fmt"

// State is a node of the turn state machine.
type State int

const (
	StateStart State = iota
	StateExtractName
	StateRetrieve
	StateSmalltalk
	StateRespond
	StateDecide
	StateSummarize
	StateEnd
)

var stateNames = [...]string{
	StateStart:       "start",
	StateExtractName: "extract_name",
	StateRetrieve:    "retrieve",
	StateSmalltalk:   "smalltalk",
	StateRespond:     "respond",
	StateDecide:      "decide",
	StateSummarize:   "summarize",
	StateEnd:         "end",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal successors of every non-terminal state. The
// graph is acyclic, so a turn visits each state at most once.
var transitions = map[State][]State{
	StateStart:       {StateExtractName},
	StateExtractName: {StateRetrieve, StateSmalltalk},
	StateRetrieve:    {StateRespond},
	StateSmalltalk:   {StateRespond},
	StateRespond:     {StateDecide},
	StateDecide:      {StateSummarize, StateEnd},
	StateSummarize:   {StateEnd},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// mustTransition panics on an illegal hop; node code choosing a wrong
// successor is a bug, not a runtime condition.
func mustTransition(from, to State) {
	if !CanTransition(from, to) {
		panic(fmt.Sprintf("conversation: illegal transition %s -> %s", from, to))
	}
}
