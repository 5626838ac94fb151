// Package policy resolves the effective action for a request from the operator's route table.
package policy

// Action is what should happen to a request on a route.
type Action string

const (
	// Let passes every request through without evaluation.
	Let Action = "let"

	// Block rejects every request on the route.
	Block Action = "block"

	// Easy challenges suspicious requests at hardness 1.
	Easy Action = "easy"

	// Normal challenges suspicious requests at hardness 2.
	Normal Action = "normal"

	// Hard challenges suspicious requests at hardness 3.
	Hard Action = "hard"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case Let, Block, Easy, Normal, Hard:
		return true
	}
	return false
}

// Hardness returns the challenge hardness of a, or 0 for actions that never challenge.
func (a Action) Hardness() int {
	switch a {
	case Easy:
		return 1
	case Normal:
		return 2
	case Hard:
		return 3
	}
	return 0
}

// DefaultAction maps a configured hardness to its challenge action. Out of range values give Normal.
func DefaultAction(hardness int) Action {
	switch hardness {
	case 1:
		return Easy
	case 3:
		return Hard
	}
	return Normal
}
