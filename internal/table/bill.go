package table

import "time"

// Bill is the closed-table snapshot. Once materialized it is immutable; the
// table itself is cleared for the next party.
type Bill struct {
	ID            int64         `json:"id"`
	TableNumber   int           `json:"tableNumber"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	TotalAmount   float64       `json:"totalAmount"`
	// PerSeat carries the split when the table pays separated; nil when the
	// party pays together.
	PerSeat   []SeatTotal `json:"perSeat,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type SeatTotal struct {
	SeatID int     `json:"seatId"`
	Total  float64 `json:"total"`
}

// Close aggregates the submitted items into a Bill and resets the table to a
// single empty seat. Draft items that were never sent are discarded with the
// close; they were never the kitchen's to make. Closing a table whose
// seats hold no submitted items is rejected.
func (t *Table) Close(now time.Time) (Bill, error) {
	submitted := t.SubmittedItems()
	if len(submitted) == 0 {
		return Bill{}, validationError(ErrNothingSubmitted, "No submitted items to bill")
	}

	bill := Bill{
		TableNumber:   t.Number,
		PaymentMethod: t.PaymentMethod,
		CreatedAt:     now,
	}

	for _, seat := range t.Seats {
		seatTotal := 0.0
		for _, item := range seat.Items {
			if item.Submitted {
				seatTotal += item.UnitPrice * float64(item.Quantity)
			}
		}
		bill.TotalAmount += seatTotal
		if t.PaymentMethod == PaySeparated && seatTotal > 0 {
			bill.PerSeat = append(bill.PerSeat, SeatTotal{SeatID: seat.ID, Total: seatTotal})
		}
	}

	t.Seats = []Seat{{ID: 1}}
	t.nextSeatID = 2
	t.PaymentMethod = PayTogether
	return bill, nil
}
