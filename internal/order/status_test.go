package order

import "testing"

func TestForwardPath(t *testing.T) {
	cases := []struct {
		name       string
		from       Status
		to         Status
		isDelivery bool
		allowed    bool
	}{
		{"pending to in progress", StatusPending, StatusInProgress, false, true},
		{"in progress to ready", StatusInProgress, StatusReadyForPickup, true, true},
		{"ready to out for delivery on delivery orders", StatusReadyForPickup, StatusOutForDelivery, true, true},
		{"ready completes directly for pickup orders", StatusReadyForPickup, StatusCompleted, false, true},
		{"ready cannot complete directly for delivery orders", StatusReadyForPickup, StatusCompleted, true, false},
		{"pickup orders never go out for delivery", StatusReadyForPickup, StatusOutForDelivery, false, false},
		{"out for delivery to completed", StatusOutForDelivery, StatusCompleted, true, true},
		{"no skipping pending to ready", StatusPending, StatusReadyForPickup, false, false},
		{"no skipping pending to completed", StatusPending, StatusCompleted, true, false},
		{"no backward moves", StatusReadyForPickup, StatusInProgress, false, false},
		{"no self transition", StatusPending, StatusPending, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to, tc.isDelivery); got != tc.allowed {
				t.Fatalf("CanTransition(%s, %s, %v) = %v, expected %v", tc.from, tc.to, tc.isDelivery, got, tc.allowed)
			}
		})
	}
}

func TestExceptionBranches(t *testing.T) {
	active := []Status{StatusPending, StatusInProgress, StatusReadyForPickup, StatusOutForDelivery}
	for _, from := range active {
		if !CanTransition(from, StatusCanceled, true) {
			t.Fatalf("expected %s -> CANCELED to be allowed", from)
		}
		if !CanTransition(from, StatusReturned, false) {
			t.Fatalf("expected %s -> RETURNED to be allowed", from)
		}
	}

	for _, from := range []Status{StatusCompleted, StatusCanceled, StatusReturned} {
		if CanTransition(from, StatusCanceled, true) {
			t.Fatalf("expected terminal %s to reject cancellation", from)
		}
		if CanTransition(from, StatusInProgress, true) {
			t.Fatalf("expected terminal %s to reject reactivation", from)
		}
	}
}

func TestNext(t *testing.T) {
	got, err := Next(StatusPending, false)
	if err != nil || got != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s (%v)", got, err)
	}

	got, err = Next(StatusReadyForPickup, true)
	if err != nil || got != StatusOutForDelivery {
		t.Fatalf("expected OUT_FOR_DELIVERY, got %s (%v)", got, err)
	}

	got, err = Next(StatusReadyForPickup, false)
	if err != nil || got != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%v)", got, err)
	}

	if _, err := Next(StatusCompleted, false); err == nil {
		t.Fatalf("expected error advancing a completed order")
	}
	if _, err := Next(StatusOutForDelivery, true); err != nil {
		t.Fatalf("expected OUT_FOR_DELIVERY to advance: %v", err)
	}
}

func TestValid(t *testing.T) {
	if Valid(Status("SHIPPED")) {
		t.Fatalf("unknown status must be invalid")
	}
	if !Valid(StatusReturned) {
		t.Fatalf("RETURNED must be valid")
	}
}
