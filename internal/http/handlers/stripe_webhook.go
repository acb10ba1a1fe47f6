package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"dinehub-order-service/internal/order"
	"dinehub-order-service/internal/payments"
	"dinehub-order-service/internal/queue"
	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"
)

const webhookBodyLimit = 1 << 20

// StripeWebhook is the single write path that turns a paid checkout session
// into an order record. The provider retries failed deliveries, so the
// insert is keyed on the session id to stay idempotent.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unreadable payload")
		return
	}

	event, err := h.Payments.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		sess, err := payments.CheckoutSessionFromEvent(event)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if sess.Mode == stripe.CheckoutSessionModeSubscription {
			h.activateSubscription(r.Context(), sess)
		} else {
			if err := h.createOrderFromSession(r.Context(), sess); err != nil {
				h.Logger.Error("order creation from webhook failed",
					zap.String("sessionId", sess.ID), zapError(err))
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Order creation failed")
				return
			}
		}
	case "customer.subscription.updated", "customer.subscription.deleted":
		h.syncSubscriptionFromEvent(r.Context(), event)
	}

	response.Success(w, map[string]any{"received": true})
}

func (h *Handler) createOrderFromSession(ctx context.Context, sess stripe.CheckoutSession) error {
	lines, err := payments.DecodeCartMetadata(sess.Metadata)
	if err != nil {
		return err
	}

	restaurantID, err := strconv.ParseInt(sess.Metadata["restaurant_id"], 10, 64)
	if err != nil {
		return err
	}
	isDelivery := sess.Metadata["is_delivery"] == "true"

	var clientID *int64
	if raw := sess.Metadata["client_id"]; raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			clientID = &id
		}
	}
	var deliveryAddress *string
	if raw := sess.Metadata["delivery_address"]; raw != "" {
		deliveryAddress = &raw
	}

	total := 0.0
	for _, line := range lines {
		total += line.Price * float64(line.Quantity)
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	orderNumber := "DH-" + utils.RandomCode(8)
	var orderID int64
	err = tx.QueryRow(ctx, `
		insert into orders (restaurant_id, client_id, order_number, total_amount, status, is_delivery, delivery_address, checkout_session_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (checkout_session_id) do nothing
		returning id
	`, restaurantID, clientID, orderNumber, total, string(order.StatusPending), isDelivery, deliveryAddress, sess.ID).Scan(&orderID)
	if err != nil {
		// Conflict means this delivery is a provider retry; done already.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	// The compact metadata carries ids and prices; names are re-read from
	// the catalog for display only. The charged price stays the one the
	// customer saw.
	for _, line := range lines {
		var name string
		if err := tx.QueryRow(ctx, `select name from menu_items where id = $1`, line.ProductID).Scan(&name); err != nil {
			name = "Item " + strconv.FormatInt(line.ProductID, 10)
		}
		if _, err := tx.Exec(ctx, `
			insert into order_items (order_id, product_id, name, quantity, unit_price)
			values ($1, $2, $3, $4, $5)
		`, orderID, line.ProductID, name, line.Quantity, line.Price); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if err := queue.PublishOrderEvent(ctx, h.Queue, queue.RoutingOrderCreated, queue.OrderEvent{
		OrderID:      orderID,
		OrderNumber:  orderNumber,
		RestaurantID: restaurantID,
		Status:       string(order.StatusPending),
		IsDelivery:   isDelivery,
		OccurredAt:   time.Now(),
	}); err != nil {
		h.Logger.Warn("order event publish failed", zapError(err))
	}
	return nil
}
