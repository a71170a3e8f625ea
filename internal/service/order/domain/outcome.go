package domain

// OutcomeTag is the terminal result of one saga invocation.
type OutcomeTag string

const (
	// OutcomeSuccess: every step committed.
	OutcomeSuccess OutcomeTag = "SUCCESS"
	// OutcomeCompensated: a step failed and the already-committed steps
	// were undone cleanly. Nothing external is left dangling.
	OutcomeCompensated OutcomeTag = "COMPENSATED"
	// OutcomeFailed: the saga did not complete. If CompensationErr is
	// set, an external reference is dangling and needs an operator.
	OutcomeFailed OutcomeTag = "FAILED"
)

// SagaOutcome describes exactly what a saga invocation did: what
// succeeded, what was compensated and what is left over. It is
// produced once per invocation, returned to the caller and never
// persisted.
type SagaOutcome struct {
	Tag OutcomeTag

	ReservationRef string
	ShipmentRef    string

	// Cause is the primary failure for COMPENSATED and FAILED outcomes.
	Cause error
	// CompensationErr is set when a compensating call also failed.
	CompensationErr error
}

// Succeeded reports whether the saga reached its goal state.
func (o SagaOutcome) Succeeded() bool { return o.Tag == OutcomeSuccess }

// Dangling reports whether the outcome left an external reference
// without a successful compensating action.
func (o SagaOutcome) Dangling() bool {
	return o.Tag == OutcomeFailed && o.CompensationErr != nil
}
