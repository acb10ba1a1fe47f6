package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/cart"
	"dinehub-order-service/internal/middleware"
	"dinehub-order-service/internal/table"
	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

func (h *Handler) waiterRestaurantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || authCtx.RestaurantID == nil {
		response.Error(w, http.StatusForbidden, "NOT_ASSOCIATED", "Ask the restaurant owner to add you with your waiter code")
		return 0, false
	}
	return *authCtx.RestaurantID, true
}

// loadTableForUpdate reads a table's state inside tx with a row lock so two
// waiters editing the same table serialize instead of clobbering each other.
func loadTableForUpdate(ctx context.Context, tx pgx.Tx, restaurantID int64, tableNumber int) (*table.Table, int64, error) {
	var (
		rowID int64
		state []byte
	)
	err := tx.QueryRow(ctx, `
		select id, state from restaurant_tables
		where restaurant_id = $1 and table_number = $2
		for update
	`, restaurantID, tableNumber).Scan(&rowID, &state)
	if err != nil {
		return nil, 0, err
	}

	var tbl table.Table
	if err := json.Unmarshal(state, &tbl); err != nil {
		return nil, 0, fmt.Errorf("table %d state corrupt: %w", tableNumber, err)
	}
	return &tbl, rowID, nil
}

func saveTable(ctx context.Context, tx pgx.Tx, rowID int64, tbl *table.Table) error {
	state, err := json.Marshal(tbl)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		update restaurant_tables set state = $1, updated_at = now() where id = $2
	`, state, rowID)
	return err
}

// mutateTable wraps the load-mutate-save cycle every table endpoint shares.
// fn returns the response payload or a domain error.
func (h *Handler) mutateTable(w http.ResponseWriter, r *http.Request, fn func(tbl *table.Table) (any, error)) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	tableNumber, err := readPathInt(r, "tableNumber")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid table number is required")
		return
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		h.Logger.Error("table tx begin failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table update failed")
		return
	}
	defer tx.Rollback(ctx)

	tbl, rowID, err := loadTableForUpdate(ctx, tx, restaurantID, tableNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, string(table.ErrTableNotFound), "Table not found")
			return
		}
		h.Logger.Error("table load failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table update failed")
		return
	}

	payload, err := fn(tbl)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := saveTable(ctx, tx, rowID, tbl); err != nil {
		h.Logger.Error("table save failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table update failed")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.Logger.Error("table tx commit failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table update failed")
		return
	}

	response.Success(w, payload)
}

type tableSummary struct {
	Number         int       `json:"number"`
	SeatCount      int       `json:"seatCount"`
	DraftItems     int       `json:"draftItems"`
	SubmittedItems int       `json:"submittedItems"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (h *Handler) WaiterTablesList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	rows, err := h.DB.Query(ctx, `
		select table_number, state, updated_at from restaurant_tables
		where restaurant_id = $1 order by table_number
	`, restaurantID)
	if err != nil {
		h.Logger.Error("tables query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve tables")
		return
	}
	defer rows.Close()

	summaries := make([]tableSummary, 0)
	for rows.Next() {
		var (
			summary tableSummary
			state   []byte
		)
		if err := rows.Scan(&summary.Number, &state, &summary.UpdatedAt); err != nil {
			h.Logger.Error("tables scan failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve tables")
			return
		}
		var tbl table.Table
		if err := json.Unmarshal(state, &tbl); err == nil {
			summary.SeatCount = len(tbl.Seats)
			summary.DraftItems = len(tbl.DraftItems())
			summary.SubmittedItems = len(tbl.SubmittedItems())
		}
		summaries = append(summaries, summary)
	}
	response.Success(w, summaries)
}

// KitchenTable is the dine-in slice of the kitchen board: one entry per
// table with items the waiter has sent. Drafts never show up here.
type KitchenTable struct {
	TableNumber int              `json:"tableNumber"`
	Items       []table.SeatItem `json:"items"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func kitchenTableFromState(number int, state []byte, updatedAt time.Time) (KitchenTable, bool) {
	var tbl table.Table
	if err := json.Unmarshal(state, &tbl); err != nil {
		return KitchenTable{}, false
	}
	items := tbl.SubmittedItems()
	if len(items) == 0 {
		return KitchenTable{}, false
	}
	return KitchenTable{TableNumber: number, Items: items, UpdatedAt: updatedAt}, true
}

// FetchKitchenTables collects every table with sent items for a restaurant.
// Shared between the owner endpoint and the kitchen websocket snapshot.
func FetchKitchenTables(ctx context.Context, db *pgxpool.Pool, restaurantID int64) ([]KitchenTable, error) {
	rows, err := db.Query(ctx, `
		select table_number, state, updated_at from restaurant_tables
		where restaurant_id = $1 order by table_number
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]KitchenTable, 0)
	for rows.Next() {
		var (
			number    int
			state     []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&number, &state, &updatedAt); err != nil {
			return nil, err
		}
		if kt, ok := kitchenTableFromState(number, state, updatedAt); ok {
			out = append(out, kt)
		}
	}
	return out, rows.Err()
}

type createTableRequest struct {
	Number int `json:"number"`
}

func (h *Handler) WaiterTableCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	var body createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Number < 1 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "A positive table number is required")
		return
	}

	state, _ := json.Marshal(table.New(body.Number))
	tag, err := h.DB.Exec(ctx, `
		insert into restaurant_tables (restaurant_id, table_number, state)
		values ($1, $2, $3)
		on conflict (restaurant_id, table_number) do nothing
	`, restaurantID, body.Number, state)
	if err != nil {
		h.Logger.Error("table insert failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table creation failed")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusBadRequest, string(table.ErrTableExists), "A table with that number already exists")
		return
	}
	response.Created(w, map[string]any{"number": body.Number})
}

func (h *Handler) WaiterTableGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	tableNumber, err := readPathInt(r, "tableNumber")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid table number is required")
		return
	}

	var state []byte
	err = h.DB.QueryRow(ctx, `
		select state from restaurant_tables where restaurant_id = $1 and table_number = $2
	`, restaurantID, tableNumber).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, string(table.ErrTableNotFound), "Table not found")
			return
		}
		h.Logger.Error("table load failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve table")
		return
	}

	var tbl table.Table
	if err := json.Unmarshal(state, &tbl); err != nil {
		h.Logger.Error("table state corrupt", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve table")
		return
	}
	response.Success(w, &tbl)
}

// WaiterTableDelete removes a table definition. Tables with submitted items
// still owe a bill and cannot be deleted until the table is closed.
func (h *Handler) WaiterTableDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	tableNumber, err := readPathInt(r, "tableNumber")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid table number is required")
		return
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		h.Logger.Error("table tx begin failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table deletion failed")
		return
	}
	defer tx.Rollback(ctx)

	tbl, rowID, err := loadTableForUpdate(ctx, tx, restaurantID, tableNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, string(table.ErrTableNotFound), "Table not found")
			return
		}
		h.Logger.Error("table load failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table deletion failed")
		return
	}
	if len(tbl.SubmittedItems()) > 0 {
		response.Error(w, http.StatusBadRequest, "TABLE_HAS_OPEN_BILL", "Close the table before deleting it")
		return
	}

	if _, err := tx.Exec(ctx, `delete from restaurant_tables where id = $1`, rowID); err != nil {
		h.Logger.Error("table delete failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table deletion failed")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.Logger.Error("table tx commit failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table deletion failed")
		return
	}
	response.Message(w, "Table deleted")
}

func (h *Handler) WaiterSeatAdd(w http.ResponseWriter, r *http.Request) {
	h.mutateTable(w, r, func(tbl *table.Table) (any, error) {
		id := tbl.AddSeat()
		return map[string]any{"seatId": id}, nil
	})
}

func (h *Handler) WaiterSeatRemove(w http.ResponseWriter, r *http.Request) {
	seatID, err := readPathInt(r, "seatId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid seat id is required")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	h.mutateTable(w, r, func(tbl *table.Table) (any, error) {
		if err := tbl.RemoveSeat(seatID, force); err != nil {
			return nil, err
		}
		return map[string]any{"removed": seatID}, nil
	})
}

type seatItemRequest struct {
	MenuItemID int64        `json:"menuItemId"`
	Quantity   int          `json:"quantity"`
	Options    cart.Options `json:"options"`
}

// WaiterItemAdd drafts a menu item onto a seat. The price is resolved from
// the catalog at draft time, options included, and travels with the item so
// later menu edits do not reprice what the guest already agreed to.
func (h *Handler) WaiterItemAdd(w http.ResponseWriter, r *http.Request) {
	seatID, err := readPathInt(r, "seatId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid seat id is required")
		return
	}

	var body seatItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MenuItemID == 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "menuItemId is required")
		return
	}

	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	var (
		name      string
		basePrice pgtype.Numeric
	)
	err = h.DB.QueryRow(r.Context(), `
		select name, base_price from menu_items
		where id = $1 and restaurant_id = $2 and is_active = true
	`, body.MenuItemID, restaurantID).Scan(&name, &basePrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
			return
		}
		h.Logger.Error("menu item lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Item add failed")
		return
	}
	unitPrice := cart.FinalPrice(utils.NumericToFloat64(basePrice), body.Options)

	h.mutateTable(w, r, func(tbl *table.Table) (any, error) {
		item := table.SeatItem{
			ID:        fmt.Sprintf("ti-%d-%d", time.Now().UnixNano(), body.MenuItemID),
			ProductID: body.MenuItemID,
			Name:      name,
			Quantity:  body.Quantity,
			UnitPrice: unitPrice,
			Notes:     strings.TrimSpace(body.Options.Notes),
		}
		if err := tbl.AddItem(seatID, item); err != nil {
			return nil, err
		}
		return map[string]any{"itemId": item.ID}, nil
	})
}

func (h *Handler) WaiterItemRemove(w http.ResponseWriter, r *http.Request) {
	seatID, err := readPathInt(r, "seatId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid seat id is required")
		return
	}
	itemID := readPathString(r, "itemId")
	if itemID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid item id is required")
		return
	}

	h.mutateTable(w, r, func(tbl *table.Table) (any, error) {
		if err := tbl.RemoveItem(seatID, itemID); err != nil {
			return nil, err
		}
		return map[string]any{"removed": itemID}, nil
	})
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (h *Handler) WaiterTableSetPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	h.mutateTable(w, r, func(tbl *table.Table) (any, error) {
		if err := tbl.SetPaymentMethod(table.PaymentMethod(body.PaymentMethod)); err != nil {
			return nil, err
		}
		return map[string]any{"paymentMethod": tbl.PaymentMethod}, nil
	})
}

func (h *Handler) WaiterTableSendToKitchen(w http.ResponseWriter, r *http.Request) {
	h.mutateTable(w, r, func(tbl *table.Table) (any, error) {
		sent := tbl.SendToKitchen()
		return map[string]any{"sent": sent, "sentCount": len(sent)}, nil
	})
}

// WaiterTableClose materializes the bill from the submitted items, persists
// it and resets the table for the next party, all in one transaction.
func (h *Handler) WaiterTableClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.waiterRestaurantID(w, r)
	if !ok {
		return
	}

	tableNumber, err := readPathInt(r, "tableNumber")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid table number is required")
		return
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		h.Logger.Error("table tx begin failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table close failed")
		return
	}
	defer tx.Rollback(ctx)

	tbl, rowID, err := loadTableForUpdate(ctx, tx, restaurantID, tableNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, string(table.ErrTableNotFound), "Table not found")
			return
		}
		h.Logger.Error("table load failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table close failed")
		return
	}

	bill, err := tbl.Close(time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var perSeat []byte
	if bill.PerSeat != nil {
		perSeat, _ = json.Marshal(bill.PerSeat)
	}
	err = tx.QueryRow(ctx, `
		insert into bills (restaurant_id, table_number, payment_method, total_amount, per_seat)
		values ($1, $2, $3, $4, $5)
		returning id, created_at
	`, restaurantID, bill.TableNumber, string(bill.PaymentMethod), bill.TotalAmount, perSeat).Scan(&bill.ID, &bill.CreatedAt)
	if err != nil {
		h.Logger.Error("bill insert failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table close failed")
		return
	}

	if err := saveTable(ctx, tx, rowID, tbl); err != nil {
		h.Logger.Error("table save failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table close failed")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.Logger.Error("table tx commit failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Table close failed")
		return
	}

	response.Success(w, bill)
}

// WaiterLeave detaches the waiter from their restaurant. Tables and bills
// stay with the restaurant; only the association is cleared.
func (h *Handler) WaiterLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update users set restaurant_id = null, updated_at = now()
		where id = $1 and restaurant_id is not null
	`, authCtx.UserID)
	if err != nil {
		h.Logger.Error("waiter leave failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Leave failed")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusBadRequest, "NOT_ASSOCIATED", "You are not associated with a restaurant")
		return
	}
	response.Message(w, "Left restaurant")
}
