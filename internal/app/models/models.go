package models

// Term represents a semester term
type Term string

// Term constants
const (
	TermFall   Term = "FALL"
	TermSpring Term = "SPRING"
)

// RunStatus represents the lifecycle state of an allocation run
type RunStatus string

const (
	RunStatusCommitted RunStatus = "COMMITTED"
	RunStatusAborted   RunStatus = "ABORTED"
)
