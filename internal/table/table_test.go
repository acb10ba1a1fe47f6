package table

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewTableStartsWithOneSeat(t *testing.T) {
	tb := New(4)
	if len(tb.Seats) != 1 || tb.Seats[0].ID != 1 {
		t.Fatalf("expected a single seat with id 1, got %+v", tb.Seats)
	}
	if tb.PaymentMethod != PayTogether {
		t.Fatalf("expected default payment method together")
	}
}

func TestAddSeatKeepsIDsUnique(t *testing.T) {
	tb := New(4)
	first := tb.AddSeat()
	second := tb.AddSeat()
	if first == second || first == 1 || second == 1 {
		t.Fatalf("expected unique seat ids, got %d and %d", first, second)
	}

	// Simulate a reload from the persisted document: the internal counter
	// is not serialized and must be rebuilt from the max existing id.
	data, _ := json.Marshal(tb)
	var reloaded Table
	if err := json.Unmarshal(data, &reloaded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	added := reloaded.AddSeat()
	for _, seat := range reloaded.Seats[:len(reloaded.Seats)-1] {
		if seat.ID == added {
			t.Fatalf("seat id %d reused after reload", added)
		}
	}
}

func TestRemoveSeat(t *testing.T) {
	tb := New(4)
	seatID := tb.AddSeat()

	if err := tb.RemoveSeat(99, false); err == nil {
		t.Fatalf("expected error removing unknown seat")
	}

	_ = tb.AddItem(seatID, SeatItem{ID: "a", ProductID: 1, Name: "Margherita", Quantity: 1, UnitPrice: 10})
	err := tb.RemoveSeat(seatID, false)
	var tableErr *Error
	if !errors.As(err, &tableErr) || tableErr.Code != ErrSeatHasDraftItems {
		t.Fatalf("expected SEAT_HAS_DRAFT_ITEMS, got %v", err)
	}

	if err := tb.RemoveSeat(seatID, true); err != nil {
		t.Fatalf("expected forced removal to succeed: %v", err)
	}
	if len(tb.Seats) != 1 {
		t.Fatalf("expected one seat left, got %d", len(tb.Seats))
	}

	err = tb.RemoveSeat(1, true)
	if !errors.As(err, &tableErr) || tableErr.Code != ErrLastSeat {
		t.Fatalf("expected LAST_SEAT guarding the final seat, got %v", err)
	}
}

func TestRemoveSeatKeepsPlacedItemsBillable(t *testing.T) {
	tb := New(4)
	seat2 := tb.AddSeat()
	_ = tb.AddItem(1, SeatItem{ID: "a", ProductID: 3, Name: "Cola", Quantity: 1, UnitPrice: 3})
	_ = tb.AddItem(seat2, SeatItem{ID: "b", ProductID: 1, Name: "Margherita", Quantity: 1, UnitPrice: 10})
	tb.SendToKitchen()

	err := tb.RemoveSeat(seat2, false)
	var tableErr *Error
	if !errors.As(err, &tableErr) || tableErr.Code != ErrSeatHasPlacedItems {
		t.Fatalf("expected SEAT_HAS_PLACED_ITEMS, got %v", err)
	}

	if err := tb.RemoveSeat(seat2, true); err != nil {
		t.Fatalf("forced removal failed: %v", err)
	}
	if len(tb.Seats) != 1 {
		t.Fatalf("expected one seat left, got %d", len(tb.Seats))
	}

	// Everything the kitchen was sent stays on the bill.
	bill, err := tb.Close(time.Now())
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if bill.TotalAmount != 13 {
		t.Fatalf("expected bill 13.00 covering all sent items, got %.2f", bill.TotalAmount)
	}
}

func TestSendToKitchenScenario(t *testing.T) {
	tb := New(7)
	seat2 := tb.AddSeat()

	_ = tb.AddItem(1, SeatItem{ID: "a", ProductID: 1, Name: "Margherita", Quantity: 1, UnitPrice: 10})
	_ = tb.AddItem(1, SeatItem{ID: "b", ProductID: 2, Name: "Pepperoni", Quantity: 1, UnitPrice: 14})
	_ = tb.AddItem(seat2, SeatItem{ID: "c", ProductID: 3, Name: "Cola", Quantity: 1, UnitPrice: 3})

	if got := len(tb.SubmittedItems()); got != 0 {
		t.Fatalf("kitchen must not see drafts, saw %d items", got)
	}

	sent := tb.SendToKitchen()
	if len(sent) != 3 {
		t.Fatalf("expected 3 items sent, got %d", len(sent))
	}
	if got := len(tb.SubmittedItems()); got != 3 {
		t.Fatalf("kitchen view expected 3 submitted items, got %d", got)
	}

	// A later draft stays invisible until the next send.
	_ = tb.AddItem(1, SeatItem{ID: "d", ProductID: 4, Name: "Tiramisu", Quantity: 1, UnitPrice: 6})
	if got := len(tb.SubmittedItems()); got != 3 {
		t.Fatalf("draft leaked into kitchen view: %d items", got)
	}
	if got := len(tb.DraftItems()); got != 1 {
		t.Fatalf("expected 1 draft item, got %d", got)
	}

	sent = tb.SendToKitchen()
	if len(sent) != 1 || sent[0].ID != "d" {
		t.Fatalf("expected only the new draft on second send, got %+v", sent)
	}
}

func TestCloseTogether(t *testing.T) {
	tb := New(2)
	seat2 := tb.AddSeat()
	_ = tb.AddItem(1, SeatItem{ID: "a", ProductID: 1, Name: "Margherita", Quantity: 2, UnitPrice: 10})
	_ = tb.AddItem(seat2, SeatItem{ID: "b", ProductID: 3, Name: "Cola", Quantity: 1, UnitPrice: 3})
	tb.SendToKitchen()
	// A straggler draft must not be billed.
	_ = tb.AddItem(1, SeatItem{ID: "c", ProductID: 4, Name: "Tiramisu", Quantity: 1, UnitPrice: 6})

	now := time.Now()
	bill, err := tb.Close(now)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if bill.TotalAmount != 23 {
		t.Fatalf("expected total 23.00, got %.2f", bill.TotalAmount)
	}
	if bill.PerSeat != nil {
		t.Fatalf("together bill must not carry per-seat split")
	}
	if !bill.CreatedAt.Equal(now) || bill.TableNumber != 2 {
		t.Fatalf("bill snapshot fields wrong: %+v", bill)
	}

	// Table cleared for reuse.
	if len(tb.Seats) != 1 || len(tb.Seats[0].Items) != 0 {
		t.Fatalf("expected table reset after close, got %+v", tb.Seats)
	}
	if tb.PaymentMethod != PayTogether {
		t.Fatalf("expected payment method reset")
	}
}

func TestCloseSeparated(t *testing.T) {
	tb := New(2)
	seat2 := tb.AddSeat()
	_ = tb.AddItem(1, SeatItem{ID: "a", ProductID: 1, Name: "Margherita", Quantity: 1, UnitPrice: 10})
	_ = tb.AddItem(seat2, SeatItem{ID: "b", ProductID: 2, Name: "Pepperoni", Quantity: 2, UnitPrice: 14})
	tb.SendToKitchen()
	if err := tb.SetPaymentMethod(PaySeparated); err != nil {
		t.Fatalf("set payment method: %v", err)
	}

	bill, err := tb.Close(time.Now())
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if bill.TotalAmount != 38 {
		t.Fatalf("expected total 38.00, got %.2f", bill.TotalAmount)
	}
	if len(bill.PerSeat) != 2 {
		t.Fatalf("expected 2 seat totals, got %+v", bill.PerSeat)
	}
	totals := map[int]float64{}
	for _, st := range bill.PerSeat {
		totals[st.SeatID] = st.Total
	}
	if totals[1] != 10 || totals[seat2] != 28 {
		t.Fatalf("unexpected split: %+v", totals)
	}
}

func TestCloseWithoutSubmittedItems(t *testing.T) {
	tb := New(2)
	_ = tb.AddItem(1, SeatItem{ID: "a", ProductID: 1, Name: "Margherita", Quantity: 1, UnitPrice: 10})

	_, err := tb.Close(time.Now())
	var tableErr *Error
	if !errors.As(err, &tableErr) || tableErr.Code != ErrNothingSubmitted {
		t.Fatalf("expected NOTHING_SUBMITTED, got %v", err)
	}
}

func TestSetPaymentMethodRejectsUnknown(t *testing.T) {
	tb := New(2)
	if err := tb.SetPaymentMethod("split-by-item"); err == nil {
		t.Fatalf("expected error for unknown payment method")
	}
}
