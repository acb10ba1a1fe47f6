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

// DriverOrderView is the driver's shape of a delivery. Shared between the
// driver endpoints and the websocket fanout.
type DriverOrderView struct {
	ID              int64     `json:"id"`
	OrderNumber     string    `json:"orderNumber"`
	Status          string    `json:"status"`
	TotalAmount     float64   `json:"totalAmount"`
	DeliveryAddress *string   `json:"deliveryAddress,omitempty"`
	RestaurantName  string    `json:"restaurantName"`
	CreatedAt       time.Time `json:"createdAt"`
}

// FetchDriverOrders returns a driver's open deliveries: assigned orders
// that are being prepared or already out the door.
func FetchDriverOrders(ctx context.Context, db *pgxpool.Pool, driverID int64) ([]DriverOrderView, error) {
	rows, err := db.Query(ctx, `
		select o.id, o.order_number, o.status, o.total_amount, o.delivery_address, r.name, o.created_at
		from orders o
		join restaurants r on r.id = o.restaurant_id
		where o.assigned_driver_id = $1
		  and o.status in ('PENDING', 'IN_PROGRESS', 'READY_FOR_PICKUP', 'OUT_FOR_DELIVERY')
		order by o.created_at
	`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]DriverOrderView, 0)
	for rows.Next() {
		var (
			item            DriverOrderView
			totalAmount     pgtype.Numeric
			deliveryAddress pgtype.Text
		)
		if err := rows.Scan(&item.ID, &item.OrderNumber, &item.Status, &totalAmount,
			&deliveryAddress, &item.RestaurantName, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.TotalAmount = utils.NumericToFloat64(totalAmount)
		item.DeliveryAddress = nullableText(deliveryAddress)
		orders = append(orders, item)
	}
	return orders, nil
}

func (h *Handler) DriverOrdersList(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	orders, err := FetchDriverOrders(r.Context(), h.DB, authCtx.UserID)
	if err != nil {
		h.Logger.Error("driver orders query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve orders")
		return
	}
	response.Success(w, orders)
}

type confirmDeliveryRequest struct {
	Code string `json:"code"`
}

// DriverConfirmDelivery completes a delivery. The driver identity, the
// customer's confirmation code and the dispatched status are all checked by
// the one UPDATE; a wrong code changes nothing and the caller is told so.
func (h *Handler) DriverConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid order id is required")
		return
	}

	var body confirmDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.Code))
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Confirmation code is required")
		return
	}

	var (
		orderNumber  string
		restaurantID int64
	)
	err = h.DB.QueryRow(ctx, `
		update orders set status = $1, updated_at = now()
		where id = $2
		  and assigned_driver_id = $3
		  and confirmation_code = $4
		  and status = $5
		returning order_number, restaurant_id
	`, string(order.StatusCompleted), orderID, authCtx.UserID, code, string(order.StatusOutForDelivery)).
		Scan(&orderNumber, &restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusBadRequest, "CONFIRMATION_FAILED",
				"Code does not match an order out for delivery assigned to you")
			return
		}
		h.Logger.Error("delivery confirmation failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Confirmation failed")
		return
	}

	if err := queue.PublishOrderEvent(ctx, h.Queue, queue.RoutingOrderStatusUpdated, queue.OrderEvent{
		OrderID:      orderID,
		OrderNumber:  orderNumber,
		RestaurantID: restaurantID,
		Status:       string(order.StatusCompleted),
		IsDelivery:   true,
		OccurredAt:   time.Now(),
	}); err != nil {
		h.Logger.Warn("order event publish failed", zapError(err))
	}

	response.Success(w, map[string]any{"status": order.StatusCompleted})
}

type driverAssociateRequest struct {
	RestaurantCode string `json:"restaurantCode"`
}

// DriverAssociate joins the caller to a restaurant by its public code.
// Drivers work one restaurant at a time; leaving first is required before
// joining another.
func (h *Handler) DriverAssociate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	if authCtx.RestaurantID != nil {
		response.Error(w, http.StatusBadRequest, "ALREADY_ASSOCIATED", "Leave your current restaurant first")
		return
	}

	var body driverAssociateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.RestaurantCode))
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Restaurant code is required")
		return
	}

	var restaurantID int64
	err := h.DB.QueryRow(ctx, `select id from restaurants where code = $1`, code).Scan(&restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "RESTAURANT_NOT_FOUND", "No restaurant with that code")
			return
		}
		h.Logger.Error("restaurant lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Association failed")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update users set restaurant_id = $1, updated_at = now()
		where id = $2 and restaurant_id is null
	`, restaurantID, authCtx.UserID)
	if err != nil {
		h.Logger.Error("driver association failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Association failed")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusBadRequest, "ALREADY_ASSOCIATED", "Leave your current restaurant first")
		return
	}

	response.Success(w, map[string]any{"restaurantId": restaurantID})
}

// DriverLeave detaches the caller from their restaurant. Open deliveries
// keep their assignment; the driver is expected to finish them.
func (h *Handler) DriverLeave(w http.ResponseWriter, r *http.Request) {
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
		h.Logger.Error("driver leave failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Leave failed")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusBadRequest, "NOT_ASSOCIATED", "You are not associated with a restaurant")
		return
	}
	response.Message(w, "Left restaurant")
}
