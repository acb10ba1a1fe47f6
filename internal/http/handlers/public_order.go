package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderItemView struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// PublicOrderView is the customer-facing shape of an order. The
// confirmation code and driver assignment never appear here; the customer
// learns the code out of band from the restaurant.
type PublicOrderView struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	RestaurantID    int64           `json:"restaurantId"`
	Status          string          `json:"status"`
	TotalAmount     float64         `json:"totalAmount"`
	IsDelivery      bool            `json:"isDelivery"`
	DeliveryAddress *string         `json:"deliveryAddress,omitempty"`
	Items           []OrderItemView `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// FetchPublicOrder loads the tracking view by order number. Shared between
// the HTTP endpoint and the websocket fanout.
func FetchPublicOrder(ctx context.Context, db *pgxpool.Pool, orderNumber string) (PublicOrderView, bool, error) {
	var (
		view            PublicOrderView
		totalAmount     pgtype.Numeric
		deliveryAddress pgtype.Text
	)
	err := db.QueryRow(ctx, `
		select id, order_number, restaurant_id, status, total_amount, is_delivery, delivery_address, created_at, updated_at
		from orders where order_number = $1
	`, orderNumber).Scan(&view.ID, &view.OrderNumber, &view.RestaurantID, &view.Status,
		&totalAmount, &view.IsDelivery, &deliveryAddress, &view.CreatedAt, &view.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PublicOrderView{}, false, nil
		}
		return PublicOrderView{}, false, err
	}
	view.TotalAmount = utils.NumericToFloat64(totalAmount)
	view.DeliveryAddress = nullableText(deliveryAddress)

	rows, err := db.Query(ctx, `
		select product_id, name, quantity, unit_price from order_items where order_id = $1 order by id
	`, view.ID)
	if err != nil {
		return PublicOrderView{}, false, err
	}
	defer rows.Close()

	view.Items = make([]OrderItemView, 0)
	for rows.Next() {
		var (
			item      OrderItemView
			unitPrice pgtype.Numeric
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &unitPrice); err != nil {
			return PublicOrderView{}, false, err
		}
		item.UnitPrice = utils.NumericToFloat64(unitPrice)
		view.Items = append(view.Items, item)
	}
	return view, true, nil
}

// PublicOrderTrack is the customer's read-only view of a placed order.
func (h *Handler) PublicOrderTrack(w http.ResponseWriter, r *http.Request) {
	orderNumber := strings.TrimSpace(readPathString(r, "orderNumber"))
	if orderNumber == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order number is required")
		return
	}

	view, found, err := FetchPublicOrder(r.Context(), h.DB, orderNumber)
	if err != nil {
		h.Logger.Error("order tracking load failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}

	response.Success(w, view)
}
