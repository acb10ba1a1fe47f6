package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dinehub-order-service/internal/cart"
	"dinehub-order-service/internal/table"
)

func TestWriteDomainErrorTableError(t *testing.T) {
	tbl := table.New(5)
	err := tbl.RemoveSeat(99, false)
	if err == nil {
		t.Fatal("expected an error for an unknown seat")
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, err)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Success {
		t.Error("success should be false")
	}
	if body.Error != string(table.ErrSeatNotFound) {
		t.Errorf("error code = %q, want %q", body.Error, table.ErrSeatNotFound)
	}
}

func TestWriteDomainErrorUntyped(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errMissingParam)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestKitchenTableFromState(t *testing.T) {
	now := time.Now()

	tbl := table.New(7)
	_ = tbl.AddItem(1, table.SeatItem{ID: "a", ProductID: 1, Name: "Margherita", Quantity: 1, UnitPrice: 10})
	_ = tbl.AddItem(1, table.SeatItem{ID: "b", ProductID: 3, Name: "Cola", Quantity: 2, UnitPrice: 3})
	tbl.SendToKitchen()
	_ = tbl.AddItem(1, table.SeatItem{ID: "c", ProductID: 4, Name: "Tiramisu", Quantity: 1, UnitPrice: 6})

	state, _ := json.Marshal(tbl)
	kt, ok := kitchenTableFromState(7, state, now)
	if !ok {
		t.Fatal("expected a kitchen entry for a table with sent items")
	}
	if kt.TableNumber != 7 || len(kt.Items) != 2 {
		t.Fatalf("expected table 7 with the 2 sent items, got %+v", kt)
	}
	for _, item := range kt.Items {
		if item.ID == "c" {
			t.Fatal("draft item leaked into the kitchen view")
		}
	}

	// A table with only drafts stays off the board.
	draftOnly := table.New(8)
	_ = draftOnly.AddItem(1, table.SeatItem{ID: "d", ProductID: 1, Name: "Margherita", Quantity: 1, UnitPrice: 10})
	state, _ = json.Marshal(draftOnly)
	if _, ok := kitchenTableFromState(8, state, now); ok {
		t.Fatal("draft-only table must not appear on the kitchen board")
	}

	if _, ok := kitchenTableFromState(9, []byte("{"), now); ok {
		t.Fatal("corrupt state must not produce a kitchen entry")
	}
}

func TestMenuItemRequestValidate(t *testing.T) {
	crust := 2.0
	badCrust := -1.0

	tests := []struct {
		name    string
		req     menuItemRequest
		wantErr bool
	}{
		{
			name: "valid minimal",
			req:  menuItemRequest{Name: "Margherita", BasePrice: 8.50},
		},
		{
			name: "valid with options",
			req: menuItemRequest{
				Name:              "Diavola",
				BasePrice:         10,
				Sizes:             []cart.SizeOption{{Name: "Large", Price: 13}},
				Addons:            []cart.AddonOption{{Name: "Extra cheese", Price: 1.5}},
				StuffedCrustPrice: &crust,
			},
		},
		{
			name:    "missing name",
			req:     menuItemRequest{Name: "   ", BasePrice: 8.50},
			wantErr: true,
		},
		{
			name:    "zero price",
			req:     menuItemRequest{Name: "Margherita", BasePrice: 0},
			wantErr: true,
		},
		{
			name: "size without price",
			req: menuItemRequest{
				Name:      "Margherita",
				BasePrice: 8.50,
				Sizes:     []cart.SizeOption{{Name: "Large"}},
			},
			wantErr: true,
		},
		{
			name: "addon without name",
			req: menuItemRequest{
				Name:      "Margherita",
				BasePrice: 8.50,
				Addons:    []cart.AddonOption{{Price: 1}},
			},
			wantErr: true,
		},
		{
			name: "negative crust price",
			req: menuItemRequest{
				Name:              "Margherita",
				BasePrice:         8.50,
				StuffedCrustPrice: &badCrust,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.req.validate()
			if tt.wantErr && msg == "" {
				t.Error("expected a validation message, got none")
			}
			if !tt.wantErr && msg != "" {
				t.Errorf("unexpected validation message: %q", msg)
			}
		})
	}
}
