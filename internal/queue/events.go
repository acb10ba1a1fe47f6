package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	EventsExchange     = "dinehub.events"
	NotificationsQueue = "dinehub.notifications"

	RoutingOrderCreated       = "order.created"
	RoutingOrderStatusUpdated = "order.status.updated"
)

// OrderEvent is the fanout payload for order lifecycle changes. Kitchen
// displays, customer notifications and any future integrations consume it
// from the events exchange.
type OrderEvent struct {
	OrderID      int64     `json:"orderId"`
	OrderNumber  string    `json:"orderNumber"`
	RestaurantID int64     `json:"restaurantId"`
	Status       string    `json:"status"`
	IsDelivery   bool      `json:"isDelivery"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func PublishOrderEvent(ctx context.Context, client *Client, routingKey string, event OrderEvent) error {
	if client == nil {
		return nil
	}
	return client.PublishJSON(ctx, EventsExchange, routingKey, event)
}

// EnsureTopology declares the events exchange and the notifications queue
// bound to every order.* routing key. Idempotent at boot.
func EnsureTopology(client *Client) error {
	if err := client.EnsureExchange(EventsExchange); err != nil {
		return err
	}
	if _, err := client.EnsureQueue(NotificationsQueue); err != nil {
		return err
	}
	// '#' so multi-segment keys like order.status.updated match too.
	return client.BindQueue(NotificationsQueue, EventsExchange, "order.#")
}

// ProcessEventToJobs is the daemon-mode consumer: it turns order events into
// rows in notification_jobs for the out-of-process notifier to pick up.
func ProcessEventToJobs(ctx context.Context, db *pgxpool.Pool, body []byte) error {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}
	if event.OrderID == 0 || event.RestaurantID == 0 {
		return fmt.Errorf("order event missing ids")
	}

	kind := "order_status"
	if event.Status == "PENDING" {
		kind = "order_created"
	}

	_, err := db.Exec(ctx, `
		insert into notification_jobs (restaurant_id, kind, payload)
		values ($1, $2, $3)
	`, event.RestaurantID, kind, map[string]any{
		"orderId":     event.OrderID,
		"orderNumber": event.OrderNumber,
		"status":      event.Status,
		"isDelivery":  event.IsDelivery,
		"occurredAt":  event.OccurredAt,
	})
	return err
}
