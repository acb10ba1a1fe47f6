package payments

import (
	"context"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v78"
	portalsession "github.com/stripe/stripe-go/v78/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/customer"
)

// RenewalWindow is how far before the current period end a renewal may be
// started. Outside the window the owner is told to come back later.
const RenewalWindow = 30 * 24 * time.Hour

// RenewalAllowed reports whether a renewal through the billing portal may
// proceed. Canceled subscriptions never renew in place; they go through a
// fresh subscription checkout instead.
func RenewalAllowed(periodEnd time.Time, now time.Time, canceled bool) bool {
	if canceled {
		return false
	}
	if periodEnd.IsZero() {
		return false
	}
	return !now.Before(periodEnd.Add(-RenewalWindow))
}

// EnsureCustomer finds-or-creates the provider-side customer for a
// restaurant owner and returns its id for storage.
func (c *Client) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", providerError("Customer creation failed: " + err.Error())
	}
	return cust.ID, nil
}

// CreateSubscriptionCheckout starts a fresh subscription checkout for a
// restaurant with no active subscription (or a canceled one).
func (c *Client) CreateSubscriptionCheckout(ctx context.Context, customerID string, restaurantID int64) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.SubscriptionPrice),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.BillingReturnURL),
		CancelURL:  stripe.String(c.BillingReturnURL),
	}
	params.Context = ctx
	params.AddMetadata("restaurant_id", strconv.FormatInt(restaurantID, 10))

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, providerError("Subscription checkout failed: " + err.Error())
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// CreateBillingPortalSession opens the provider's billing portal for an
// existing customer, used for in-window renewals and payment method changes.
func (c *Client) CreateBillingPortalSession(ctx context.Context, customerID string) (*Session, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.BillingReturnURL),
	}
	params.Context = ctx

	sess, err := portalsession.New(params)
	if err != nil {
		return nil, providerError("Billing portal session failed: " + err.Error())
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}
