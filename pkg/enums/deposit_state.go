package enums

import "fmt"

// DepositState tracks the lifecycle of a gateway deposit. The state only ever
// moves forward: pending -> approved -> completed, or pending -> rejected.
type DepositState string

const (
	DepositStatePending   DepositState = "pending"
	DepositStateApproved  DepositState = "approved"
	DepositStateCompleted DepositState = "completed"
	DepositStateRejected  DepositState = "rejected"
)

var validDepositStates = []DepositState{
	DepositStatePending,
	DepositStateApproved,
	DepositStateCompleted,
	DepositStateRejected,
}

// depositStateRank orders states along the forward path. Rejected shares the
// terminal rank with completed; neither may be overwritten.
var depositStateRank = map[DepositState]int{
	DepositStatePending:   0,
	DepositStateApproved:  1,
	DepositStateCompleted: 2,
	DepositStateRejected:  2,
}

// String implements fmt.Stringer.
func (s DepositState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DepositState.
func (s DepositState) IsValid() bool {
	for _, candidate := range validDepositStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s DepositState) IsTerminal() bool {
	return s == DepositStateCompleted || s == DepositStateRejected
}

// AtOrBeyond reports whether the state is the target or one only reachable
// after it on the forward path.
func (s DepositState) AtOrBeyond(target DepositState) bool {
	sr, ok := depositStateRank[s]
	if !ok {
		return false
	}
	tr, ok := depositStateRank[target]
	if !ok {
		return false
	}
	return sr >= tr
}

// ParseDepositState converts raw input into a DepositState.
func ParseDepositState(value string) (DepositState, error) {
	for _, candidate := range validDepositStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deposit state %q", value)
}
