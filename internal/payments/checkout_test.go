package payments

import (
	"testing"
	"time"

	"dinehub-order-service/internal/cart"
)

func TestBuildLineItemsMinorUnits(t *testing.T) {
	items := []cart.Item{
		{CartItemID: "ci-1", ProductID: 9, Name: "Quattro Formaggi", Quantity: 2, BasePrice: 22.00, FinalPrice: 25.50},
	}

	lines := BuildLineItems(items, "usd")
	if len(lines) != 1 {
		t.Fatalf("expected one line per cart entry, got %d", len(lines))
	}
	line := lines[0]
	if *line.PriceData.UnitAmount != 2550 {
		t.Fatalf("expected unit_amount 2550, got %d", *line.PriceData.UnitAmount)
	}
	if *line.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", *line.Quantity)
	}
	if *line.PriceData.Currency != "usd" {
		t.Fatalf("expected currency usd, got %s", *line.PriceData.Currency)
	}
	if *line.PriceData.ProductData.Name != "Quattro Formaggi" {
		t.Fatalf("expected product name carried, got %s", *line.PriceData.ProductData.Name)
	}
}

func TestBuildLineItemsUsesFinalPriceNotBase(t *testing.T) {
	items := []cart.Item{
		{CartItemID: "ci-1", ProductID: 9, Name: "Margherita", Quantity: 1, BasePrice: 10.00, FinalPrice: 13.75},
	}
	lines := BuildLineItems(items, "eur")
	if *lines[0].PriceData.UnitAmount != 1375 {
		t.Fatalf("line item must use the cart's finalPrice, got %d", *lines[0].PriceData.UnitAmount)
	}
}

func TestRenewalAllowed(t *testing.T) {
	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		now      time.Time
		canceled bool
		allowed  bool
	}{
		{"inside the window", periodEnd.Add(-10 * 24 * time.Hour), false, true},
		{"exact window edge", periodEnd.Add(-RenewalWindow), false, true},
		{"one hour too early", periodEnd.Add(-RenewalWindow - time.Hour), false, false},
		{"after period end still renewable", periodEnd.Add(24 * time.Hour), false, true},
		{"canceled goes through fresh checkout", periodEnd.Add(-10 * 24 * time.Hour), true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenewalAllowed(periodEnd, tc.now, tc.canceled); got != tc.allowed {
				t.Fatalf("RenewalAllowed = %v, expected %v", got, tc.allowed)
			}
		})
	}

	if RenewalAllowed(time.Time{}, time.Now(), false) {
		t.Fatalf("missing period end must not allow renewal")
	}
}
