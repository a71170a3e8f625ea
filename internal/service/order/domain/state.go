package domain

// State defines the lifecycle state of an order.
type State string

const (
	StateDraft     State = "DRAFT"     // created by checkout, not yet submitted
	StatePending   State = "PENDING"   // submitted, waiting for confirmation
	StateConfirmed State = "CONFIRMED" // stock reserved and shipment created
	StateCancelled State = "CANCELLED" // cancelled before confirmation
)

// Terminal reports whether no further transitions are allowed from s.
// CONFIRMED is terminal for this core: undoing a confirmed order goes
// through a separate returns process, not through the cancellation saga.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled
}
