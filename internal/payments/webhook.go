package payments

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// VerifyWebhook checks the provider signature over the raw payload and
// returns the parsed event. Unsigned or tampered payloads are rejected
// before anything reads them.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, c.WebhookSecret)
	if err != nil {
		return stripe.Event{}, validationError(ErrProvider, "Webhook signature verification failed")
	}
	return event, nil
}

// CheckoutSessionFromEvent unpacks the completed-session object carried by
// checkout.session.completed events.
func CheckoutSessionFromEvent(event stripe.Event) (stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return stripe.CheckoutSession{}, validationError(ErrMetadataCorrupt, "Event payload could not be parsed")
	}
	return sess, nil
}
