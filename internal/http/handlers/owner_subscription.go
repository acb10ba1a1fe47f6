package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"dinehub-order-service/internal/middleware"
	"dinehub-order-service/internal/payments"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"
)

type subscriptionView struct {
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
	RenewalAllowed   bool       `json:"renewalAllowed"`
}

func (h *Handler) loadSubscription(ctx context.Context, restaurantID int64) (customerID string, subscriptionID *string, status string, periodEnd *time.Time, err error) {
	err = h.DB.QueryRow(ctx, `
		select stripe_customer_id, stripe_subscription_id, status, current_period_end
		from subscriptions where restaurant_id = $1
	`, restaurantID).Scan(&customerID, &subscriptionID, &status, &periodEnd)
	return
}

// OwnerSubscriptionGet reports the restaurant's subscription state and
// whether an in-place renewal may start yet.
func (h *Handler) OwnerSubscriptionGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	_, _, status, periodEnd, err := h.loadSubscription(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Success(w, subscriptionView{Status: "NONE"})
			return
		}
		h.Logger.Error("subscription lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve subscription")
		return
	}

	view := subscriptionView{Status: status, CurrentPeriodEnd: periodEnd}
	if periodEnd != nil {
		view.RenewalAllowed = payments.RenewalAllowed(*periodEnd, time.Now(), status == "canceled")
	}
	response.Success(w, view)
}

// OwnerSubscriptionCheckout starts a subscription checkout. Used both for
// first-time subscribers and for restaurants whose subscription was canceled.
func (h *Handler) OwnerSubscriptionCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	customerID, _, status, _, err := h.loadSubscription(ctx, restaurantID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		h.Logger.Error("subscription lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Subscription checkout failed")
		return
	}
	if err == nil && status == "active" {
		response.Error(w, http.StatusBadRequest, "ALREADY_SUBSCRIBED", "Subscription is already active")
		return
	}

	if customerID == "" {
		var restaurantName string
		if err := h.DB.QueryRow(ctx, `select name from restaurants where id = $1`, restaurantID).Scan(&restaurantName); err != nil {
			restaurantName = "Restaurant " + strconv.FormatInt(restaurantID, 10)
		}
		customerID, err = h.Payments.EnsureCustomer(ctx, authCtx.Email, restaurantName)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if _, err := h.DB.Exec(ctx, `
			insert into subscriptions (restaurant_id, stripe_customer_id)
			values ($1, $2)
			on conflict (restaurant_id) do update set stripe_customer_id = excluded.stripe_customer_id, updated_at = now()
		`, restaurantID, customerID); err != nil {
			h.Logger.Error("subscription customer persist failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Subscription checkout failed")
			return
		}
	}

	sess, err := h.Payments.CreateSubscriptionCheckout(ctx, customerID, restaurantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response.Success(w, map[string]any{"checkoutUrl": sess.URL, "sessionId": sess.ID})
}

// OwnerSubscriptionRenew opens the billing portal for an in-place renewal.
// Renewals are only allowed inside the window before the current period end;
// earlier attempts are rejected so owners are not double-charged far ahead.
func (h *Handler) OwnerSubscriptionRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	customerID, _, status, periodEnd, err := h.loadSubscription(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND", "No subscription on record; start a new one")
			return
		}
		h.Logger.Error("subscription lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Renewal failed")
		return
	}
	if status == "canceled" {
		response.Error(w, http.StatusBadRequest, "SUBSCRIPTION_CANCELED", "Canceled subscriptions renew through a new checkout")
		return
	}
	if periodEnd == nil || !payments.RenewalAllowed(*periodEnd, time.Now(), false) {
		response.Error(w, http.StatusBadRequest, "RENEWAL_TOO_EARLY", "Renewal opens 30 days before the current period ends")
		return
	}

	sess, err := h.Payments.CreateBillingPortalSession(ctx, customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response.Success(w, map[string]any{"portalUrl": sess.URL})
}

// OwnerSubscriptionPortal opens the billing portal without the renewal
// gate, for payment method and invoice management.
func (h *Handler) OwnerSubscriptionPortal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	customerID, _, _, _, err := h.loadSubscription(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND", "No subscription on record")
			return
		}
		h.Logger.Error("subscription lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Portal session failed")
		return
	}

	sess, err := h.Payments.CreateBillingPortalSession(ctx, customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response.Success(w, map[string]any{"portalUrl": sess.URL})
}

// activateSubscription records a completed subscription checkout. The
// period end arrives later via customer.subscription.updated, so it only
// pins the subscription id and flips the status here.
func (h *Handler) activateSubscription(ctx context.Context, sess stripe.CheckoutSession) {
	restaurantID, err := strconv.ParseInt(sess.Metadata["restaurant_id"], 10, 64)
	if err != nil {
		h.Logger.Error("subscription session missing restaurant id", zap.String("sessionId", sess.ID))
		return
	}

	var subscriptionID *string
	if sess.Subscription != nil {
		subscriptionID = &sess.Subscription.ID
	}
	var customerID string
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}

	if _, err := h.DB.Exec(ctx, `
		insert into subscriptions (restaurant_id, stripe_customer_id, stripe_subscription_id, status)
		values ($1, $2, $3, 'active')
		on conflict (restaurant_id) do update set
			stripe_customer_id = excluded.stripe_customer_id,
			stripe_subscription_id = excluded.stripe_subscription_id,
			status = 'active',
			updated_at = now()
	`, restaurantID, customerID, subscriptionID); err != nil {
		h.Logger.Error("subscription activation failed",
			zap.Int64("restaurantId", restaurantID), zapError(err))
	}
}

// syncSubscriptionFromEvent mirrors provider-side subscription state
// (status, period end) into the local record.
func (h *Handler) syncSubscriptionFromEvent(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.Logger.Error("subscription event payload unreadable", zapError(err))
		return
	}
	if sub.ID == "" {
		return
	}

	status := string(sub.Status)
	if event.Type == "customer.subscription.deleted" {
		status = "canceled"
	}
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()

	tag, err := h.DB.Exec(ctx, `
		update subscriptions
		set status = $1, current_period_end = $2, updated_at = now()
		where stripe_subscription_id = $3
	`, status, periodEnd, sub.ID)
	if err != nil {
		h.Logger.Error("subscription sync failed", zap.String("subscriptionId", sub.ID), zapError(err))
		return
	}
	if tag.RowsAffected() == 0 {
		h.Logger.Warn("subscription event for unknown subscription", zap.String("subscriptionId", sub.ID))
	}
}
