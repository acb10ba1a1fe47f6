package payments

import (
	"context"
	"strconv"

	"dinehub-order-service/internal/cart"
	"dinehub-order-service/internal/utils"

	"github.com/stripe/stripe-go/v78"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
)

// Client wraps the hosted-payments provider. Everything provider-specific
// (minor units, metadata field limits, webhook signatures) stays behind it.
type Client struct {
	SuccessURL        string
	CancelURL         string
	SubscriptionPrice string
	BillingReturnURL  string
	WebhookSecret     string
}

func New(secretKey, successURL, cancelURL, subscriptionPrice, billingReturnURL, webhookSecret string) *Client {
	stripe.Key = secretKey
	return &Client{
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		SubscriptionPrice: subscriptionPrice,
		BillingReturnURL:  billingReturnURL,
		WebhookSecret:     webhookSecret,
	}
}

// Session is the opaque handle returned to the storefront; the customer is
// redirected to URL and everything after that happens on the provider's
// side until the webhook fires.
type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

type CheckoutParams struct {
	RestaurantID    int64
	Currency        string
	Items           []cart.Item
	IsDelivery      bool
	DeliveryAddress string
	// ClientID is attached when the customer checked out signed in.
	ClientID *int64
	// BackupOrderID references a pre-created local order record, if the
	// storefront made one before redirecting.
	BackupOrderID *string
}

// BuildLineItems produces one provider line per cart entry from the already
// computed FinalPrice. Prices are never re-derived from the catalog.
func BuildLineItems(items []cart.Item, currency string) []*stripe.CheckoutSessionLineItemParams {
	out := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		out = append(out, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(utils.MinorUnits(item.FinalPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	return out
}

// CreateCheckoutSession turns a non-empty cart into a hosted payment
// session. No local state is mutated; the order record is created by the
// webhook once the provider confirms payment.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error) {
	if len(p.Items) == 0 {
		return nil, validationError(ErrCartEmpty, "Cart is empty")
	}

	metadata, err := EncodeCartMetadata(p.Items)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  BuildLineItems(p.Items, p.Currency),
		SuccessURL: stripe.String(c.SuccessURL),
		CancelURL:  stripe.String(c.CancelURL),
	}
	params.Context = ctx

	params.AddMetadata("restaurant_id", strconv.FormatInt(p.RestaurantID, 10))
	params.AddMetadata("is_delivery", strconv.FormatBool(p.IsDelivery))
	if p.IsDelivery && p.DeliveryAddress != "" {
		params.AddMetadata("delivery_address", p.DeliveryAddress)
	}
	if p.ClientID != nil {
		params.AddMetadata("client_id", strconv.FormatInt(*p.ClientID, 10))
	}
	if p.BackupOrderID != nil && *p.BackupOrderID != "" {
		params.AddMetadata("backup_order_id", *p.BackupOrderID)
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, providerError("Checkout session creation failed: " + err.Error())
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}
