package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/middleware"
	"dinehub-order-service/internal/order"
	"dinehub-order-service/internal/queue"
	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderListItem is the kitchen-board shape of an order. Shared between the
// owner endpoints and the websocket fanout.
type OrderListItem struct {
	ID               int64     `json:"id"`
	OrderNumber      string    `json:"orderNumber"`
	Status           string    `json:"status"`
	TotalAmount      float64   `json:"totalAmount"`
	IsDelivery       bool      `json:"isDelivery"`
	DeliveryAddress  *string   `json:"deliveryAddress,omitempty"`
	AssignedDriverID *int64    `json:"assignedDriverId,omitempty"`
	ItemCount        int64     `json:"itemCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (h *Handler) ownerRestaurantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || authCtx.RestaurantID == nil {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Owner account has no restaurant")
		return 0, false
	}
	return *authCtx.RestaurantID, true
}

// FetchRestaurantOrders lists a restaurant's orders, newest first. With
// activeOnly only non-terminal orders are returned.
func FetchRestaurantOrders(ctx context.Context, db *pgxpool.Pool, restaurantID int64, activeOnly bool) ([]OrderListItem, error) {
	query := `
		select o.id, o.order_number, o.status, o.total_amount, o.is_delivery,
		       o.delivery_address, o.assigned_driver_id,
		       (select count(*) from order_items oi where oi.order_id = o.id),
		       o.created_at, o.updated_at
		from orders o
		where o.restaurant_id = $1
	`
	if activeOnly {
		query += ` and o.status in ('PENDING', 'IN_PROGRESS', 'READY_FOR_PICKUP', 'OUT_FOR_DELIVERY')`
	}
	query += ` order by o.created_at desc limit 200`

	rows, err := db.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]OrderListItem, 0)
	for rows.Next() {
		var (
			item            OrderListItem
			totalAmount     pgtype.Numeric
			deliveryAddress pgtype.Text
		)
		if err := rows.Scan(&item.ID, &item.OrderNumber, &item.Status, &totalAmount, &item.IsDelivery,
			&deliveryAddress, &item.AssignedDriverID, &item.ItemCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.TotalAmount = utils.NumericToFloat64(totalAmount)
		item.DeliveryAddress = nullableText(deliveryAddress)
		orders = append(orders, item)
	}
	return orders, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	orders, err := FetchRestaurantOrders(r.Context(), h.DB, restaurantID, activeOnly)
	if err != nil {
		h.Logger.Error("owner orders query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve orders")
		return
	}
	response.Success(w, orders)
}

func (h *Handler) OwnerOrdersList(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, false)
}

// OwnerActiveOrders backs the kitchen board: everything not yet terminal.
func (h *Handler) OwnerActiveOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, true)
}

// OwnerKitchenTables is the dine-in half of the kitchen board: items
// waiters have sent, grouped by table.
func (h *Handler) OwnerKitchenTables(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	tables, err := FetchKitchenTables(r.Context(), h.DB, restaurantID)
	if err != nil {
		h.Logger.Error("kitchen tables query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve tables")
		return
	}
	response.Success(w, tables)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// OwnerOrderUpdateStatus moves an order along the state machine. The
// transition check and the write happen in one conditional UPDATE so a
// concurrent change cannot sneak an illegal move through.
func (h *Handler) OwnerOrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid order id is required")
		return
	}

	var body statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	target := order.Status(strings.ToUpper(strings.TrimSpace(body.Status)))
	if !order.Valid(target) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown order status")
		return
	}

	var (
		current     string
		orderNumber string
		isDelivery  bool
	)
	err = h.DB.QueryRow(ctx, `
		select status, order_number, is_delivery from orders where id = $1 and restaurant_id = $2
	`, orderID, restaurantID).Scan(&current, &orderNumber, &isDelivery)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
			return
		}
		h.Logger.Error("order status lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Status update failed")
		return
	}

	if !order.CanTransition(order.Status(current), target, isDelivery) {
		response.Error(w, http.StatusBadRequest, "INVALID_TRANSITION",
			"Order cannot move from "+current+" to "+string(target))
		return
	}

	// Moving to OUT_FOR_DELIVERY needs a driver and mints the confirmation
	// code the driver will collect at the door. The owner-facing assign
	// endpoint is the expected path; going through here without a driver
	// assigned is rejected.
	var confirmationCode *string
	needsDriver := target == order.StatusOutForDelivery
	if needsDriver {
		var assigned *int64
		if err := h.DB.QueryRow(ctx, `select assigned_driver_id from orders where id = $1`, orderID).Scan(&assigned); err != nil {
			h.Logger.Error("driver lookup failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Status update failed")
			return
		} else if assigned == nil {
			response.Error(w, http.StatusBadRequest, "DRIVER_REQUIRED", "Assign a driver before dispatching the order")
			return
		}
		code := utils.RandomCode(6)
		confirmationCode = &code
	}

	// The driver requirement repeats inside the WHERE clause so an unassign
	// racing this update cannot dispatch a driverless order.
	tag, err := h.DB.Exec(ctx, `
		update orders
		set status = $1,
		    confirmation_code = coalesce($2, confirmation_code),
		    updated_at = now()
		where id = $3 and restaurant_id = $4 and status = $5
		  and (not $6::boolean or assigned_driver_id is not null)
	`, string(target), confirmationCode, orderID, restaurantID, current, needsDriver)
	if err != nil {
		h.Logger.Error("order status update failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Status update failed")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusConflict, "CONFLICT", "Order changed concurrently; reload and retry")
		return
	}

	if err := queue.PublishOrderEvent(ctx, h.Queue, queue.RoutingOrderStatusUpdated, queue.OrderEvent{
		OrderID:      orderID,
		OrderNumber:  orderNumber,
		RestaurantID: restaurantID,
		Status:       string(target),
		IsDelivery:   isDelivery,
		OccurredAt:   time.Now(),
	}); err != nil {
		h.Logger.Warn("order event publish failed", zapError(err))
	}

	data := map[string]any{"status": target}
	if confirmationCode != nil {
		data["confirmationCode"] = *confirmationCode
	}
	response.Success(w, data)
}

type assignDriverRequest struct {
	DriverID int64 `json:"driverId"`
}

// OwnerOrderAssignDriver pins a delivery order to one of the restaurant's
// associated drivers. Dispatch itself still goes through the status update.
func (h *Handler) OwnerOrderAssignDriver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid order id is required")
		return
	}

	var body assignDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DriverID == 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "driverId is required")
		return
	}

	// The driver must be associated with this restaurant right now.
	var one int
	err = h.DB.QueryRow(ctx, `
		select 1 from users where id = $1 and role = 'DRIVER' and restaurant_id = $2 and is_active = true
	`, body.DriverID, restaurantID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Driver not found for this restaurant")
			return
		}
		h.Logger.Error("driver lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Driver assignment failed")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update orders set assigned_driver_id = $1, updated_at = now()
		where id = $2 and restaurant_id = $3 and is_delivery = true
		  and status in ('PENDING', 'IN_PROGRESS', 'READY_FOR_PICKUP')
	`, body.DriverID, orderID, restaurantID)
	if err != nil {
		h.Logger.Error("driver assignment failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Driver assignment failed")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusBadRequest, "NOT_ASSIGNABLE", "Order is not a delivery order awaiting dispatch")
		return
	}

	response.Message(w, "Driver assigned")
}

// OwnerOrderDelete exists for test/debug cleanup only; live orders are
// never deleted, they end in a terminal status.
func (h *Handler) OwnerOrderDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid order id is required")
		return
	}

	tag, err := h.DB.Exec(ctx, `delete from orders where id = $1 and restaurant_id = $2`, orderID, restaurantID)
	if err != nil {
		h.Logger.Error("order delete failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Delete failed")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}
	response.Message(w, "Order deleted")
}
