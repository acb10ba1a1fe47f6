// Package table models the waiter flow: a physical table holds seats, each
// seat accumulates items, and a "send to kitchen" action is the only thing
// that turns drafts into placed items. Closing the table materializes an
// immutable bill and clears the table for reuse.
package table

type PaymentMethod string

const (
	PayTogether  PaymentMethod = "together"
	PaySeparated PaymentMethod = "separated"
)

type SeatItem struct {
	ID        string  `json:"id"`
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Notes     string  `json:"notes,omitempty"`
	// Submitted distinguishes the waiter's draft from what the kitchen has
	// been told to make.
	Submitted bool `json:"submitted"`
}

type Seat struct {
	ID    int        `json:"id"`
	Items []SeatItem `json:"items"`
}

// Table is the transient per-table state, persisted as one document keyed by
// (restaurant, table number). Invariants: seat ids are unique within the
// table and there is always at least one seat.
type Table struct {
	Number        int           `json:"number"`
	Seats         []Seat        `json:"seats"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	nextSeatID    int
}

func New(number int) *Table {
	return &Table{
		Number:        number,
		Seats:         []Seat{{ID: 1}},
		PaymentMethod: PayTogether,
		nextSeatID:    2,
	}
}

func (t *Table) seat(id int) *Seat {
	for i := range t.Seats {
		if t.Seats[i].ID == id {
			return &t.Seats[i]
		}
	}
	return nil
}

func (t *Table) maxSeatID() int {
	max := 0
	for _, s := range t.Seats {
		if s.ID > max {
			max = s.ID
		}
	}
	return max
}

func (t *Table) AddSeat() int {
	id := t.nextSeatID
	if id <= t.maxSeatID() {
		id = t.maxSeatID() + 1
	}
	t.Seats = append(t.Seats, Seat{ID: id})
	t.nextSeatID = id + 1
	return id
}

// RemoveSeat discards a seat. Removing a non-empty seat requires force.
// A forced removal destroys the seat's drafts, but its submitted items
// already belong to the kitchen: they move to the lowest remaining seat so
// the bill still carries everything that was sent.
func (t *Table) RemoveSeat(id int, force bool) error {
	seat := t.seat(id)
	if seat == nil {
		return notFoundError(ErrSeatNotFound, "Seat not found")
	}
	if len(t.Seats) == 1 {
		return validationError(ErrLastSeat, "A table must keep at least one seat")
	}
	if !force {
		for _, item := range seat.Items {
			if !item.Submitted {
				return validationError(ErrSeatHasDraftItems, "Seat still has unsent items; pass force to discard them")
			}
		}
		if len(seat.Items) > 0 {
			return validationError(ErrSeatHasPlacedItems, "Seat has items already sent to the kitchen; pass force to move them to another seat")
		}
	}

	var placed []SeatItem
	for _, item := range seat.Items {
		if item.Submitted {
			placed = append(placed, item)
		}
	}

	kept := t.Seats[:0]
	for _, s := range t.Seats {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	t.Seats = kept

	if len(placed) > 0 {
		lowest := 0
		for i := range t.Seats {
			if t.Seats[i].ID < t.Seats[lowest].ID {
				lowest = i
			}
		}
		t.Seats[lowest].Items = append(t.Seats[lowest].Items, placed...)
	}
	return nil
}

func (t *Table) AddItem(seatID int, item SeatItem) error {
	seat := t.seat(seatID)
	if seat == nil {
		return notFoundError(ErrSeatNotFound, "Seat not found")
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item.Submitted = false
	seat.Items = append(seat.Items, item)
	return nil
}

func (t *Table) RemoveItem(seatID int, itemID string) error {
	seat := t.seat(seatID)
	if seat == nil {
		return notFoundError(ErrSeatNotFound, "Seat not found")
	}
	kept := seat.Items[:0]
	for _, item := range seat.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	seat.Items = kept
	return nil
}

func (t *Table) SetPaymentMethod(method PaymentMethod) error {
	if method != PayTogether && method != PaySeparated {
		return validationError(ErrInvalidPayment, "Payment method must be 'together' or 'separated'")
	}
	t.PaymentMethod = method
	return nil
}

// SendToKitchen flips every unsubmitted item to submitted and returns the
// newly placed items. This is the only action kitchen-facing views treat as
// order placement.
func (t *Table) SendToKitchen() []SeatItem {
	var sent []SeatItem
	for si := range t.Seats {
		for ii := range t.Seats[si].Items {
			item := &t.Seats[si].Items[ii]
			if !item.Submitted {
				item.Submitted = true
				sent = append(sent, *item)
			}
		}
	}
	return sent
}

// SubmittedItems is the kitchen's view of the table: drafts stay invisible
// until the next send.
func (t *Table) SubmittedItems() []SeatItem {
	var out []SeatItem
	for _, seat := range t.Seats {
		for _, item := range seat.Items {
			if item.Submitted {
				out = append(out, item)
			}
		}
	}
	return out
}

func (t *Table) DraftItems() []SeatItem {
	var out []SeatItem
	for _, seat := range t.Seats {
		for _, item := range seat.Items {
			if !item.Submitted {
				out = append(out, item)
			}
		}
	}
	return out
}
