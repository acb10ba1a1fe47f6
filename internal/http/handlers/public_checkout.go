package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dinehub-order-service/internal/cart"
	"dinehub-order-service/internal/middleware"
	"dinehub-order-service/internal/payments"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
)

type checkoutRequest struct {
	RestaurantID    int64       `json:"restaurantId"`
	Items           []cart.Item `json:"items"`
	IsDelivery      bool        `json:"isDelivery"`
	DeliveryAddress string      `json:"deliveryAddress"`
	BackupOrderID   *string     `json:"backupOrderId,omitempty"`
}

// PublicCheckout turns the submitted cart into a hosted payment session.
// Anonymous checkout is allowed; when a valid bearer token is present the
// customer id rides along in the session metadata. The order record itself
// is created later, by the payment webhook.
func (h *Handler) PublicCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if body.RestaurantID == 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "restaurantId is required")
		return
	}
	if len(body.Items) == 0 {
		response.Error(w, http.StatusBadRequest, "CART_EMPTY", "Cart is empty")
		return
	}
	for _, item := range body.Items {
		if item.Quantity < 1 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Item quantities must be at least 1")
			return
		}
	}
	if body.IsDelivery && strings.TrimSpace(body.DeliveryAddress) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Delivery address is required for delivery orders")
		return
	}

	var currency string
	err := h.DB.QueryRow(ctx, `select currency from restaurants where id = $1`, body.RestaurantID).Scan(&currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Restaurant not found")
			return
		}
		h.Logger.Error("checkout restaurant lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Checkout failed")
		return
	}

	var clientID *int64
	if authCtx, ok := middleware.GetAuthContext(ctx); ok {
		clientID = &authCtx.UserID
	}

	sess, err := h.Payments.CreateCheckoutSession(ctx, payments.CheckoutParams{
		RestaurantID:    body.RestaurantID,
		Currency:        currency,
		Items:           body.Items,
		IsDelivery:      body.IsDelivery,
		DeliveryAddress: strings.TrimSpace(body.DeliveryAddress),
		ClientID:        clientID,
		BackupOrderID:   body.BackupOrderID,
	})
	if err != nil {
		h.Logger.Warn("checkout session failed", zapError(err))
		writeDomainError(w, err)
		return
	}

	response.Success(w, sess)
}
