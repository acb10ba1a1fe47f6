package order

import "fmt"

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusCompleted      Status = "COMPLETED"
	StatusCanceled       Status = "CANCELED"
	StatusReturned       Status = "RETURNED"
)

// forward is the single linear path an order moves along. Delivery orders
// pass through OUT_FOR_DELIVERY; pickup orders complete straight from
// READY_FOR_PICKUP.
var forward = map[Status]Status{
	StatusPending:        StatusInProgress,
	StatusInProgress:     StatusReadyForPickup,
	StatusOutForDelivery: StatusCompleted,
}

func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReadyForPickup,
		StatusOutForDelivery, StatusCompleted, StatusCanceled, StatusReturned:
		return true
	}
	return false
}

func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusReturned
}

// CanTransition reports whether an order may move from one status to
// another. Forward moves follow the linear path; CANCELED and RETURNED are
// exception branches reachable from any non-terminal state. There are no
// backward moves and no merges.
func CanTransition(from, to Status, isDelivery bool) bool {
	if !Valid(from) || !Valid(to) || from == to {
		return false
	}
	if Terminal(from) {
		return false
	}
	if to == StatusCanceled || to == StatusReturned {
		return true
	}
	if from == StatusReadyForPickup {
		if isDelivery {
			return to == StatusOutForDelivery
		}
		return to == StatusCompleted
	}
	return forward[from] == to
}

// Next returns the forward successor, used by the kitchen's single "advance"
// button.
func Next(from Status, isDelivery bool) (Status, error) {
	if Terminal(from) {
		return "", fmt.Errorf("order already %s", from)
	}
	if from == StatusReadyForPickup {
		if isDelivery {
			return StatusOutForDelivery, nil
		}
		return StatusCompleted, nil
	}
	next, ok := forward[from]
	if !ok {
		return "", fmt.Errorf("no forward transition from %s", from)
	}
	return next, nil
}
