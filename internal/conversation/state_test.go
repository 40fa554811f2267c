package conversation

import "testing"

func TestTransitions(t *testing.T) {
	legal := [][2]State{
		{StateStart, StateExtractName},
		{StateExtractName, StateRetrieve},
		{StateExtractName, StateSmalltalk},
		{StateRetrieve, StateRespond},
		{StateSmalltalk, StateRespond},
		{StateRespond, StateDecide},
		{StateDecide, StateSummarize},
		{StateDecide, StateEnd},
		{StateSummarize, StateEnd},
	}
	for _, hop := range legal {
		if !CanTransition(hop[0], hop[1]) {
			t.Errorf("%s -> %s should be legal", hop[0], hop[1])
		}
	}
	illegal := [][2]State{
		{StateStart, StateRetrieve},
		{StateRetrieve, StateSmalltalk},
		{StateSummarize, StateSummarize},
		{StateDecide, StateRetrieve},
		{StateEnd, StateStart},
	}
	for _, hop := range illegal {
		if CanTransition(hop[0], hop[1]) {
			t.Errorf("%s -> %s should be illegal", hop[0], hop[1])
		}
	}
}

func TestMustTransition_panicsOnIllegalHop(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	mustTransition(StateRespond, StateSummarize)
}

func TestState_String(t *testing.T) {
	if StateSummarize.String() != "summarize" || State(99).String() != "state(99)" {
		t.Error("unexpected state names")
	}
}
