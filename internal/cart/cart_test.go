package cart

import (
	"reflect"
	"testing"
)

func TestFinalPrice(t *testing.T) {
	cases := []struct {
		name     string
		base     float64
		opts     Options
		expected float64
	}{
		{
			name:     "no customization keeps base price",
			base:     12.50,
			opts:     Options{},
			expected: 12.50,
		},
		{
			name:     "size overrides base price",
			base:     12.50,
			opts:     Options{Size: &SizeOption{Name: "Large", Price: 16.00}},
			expected: 16.00,
		},
		{
			name: "addons sum on top of size",
			base: 12.50,
			opts: Options{
				Size:   &SizeOption{Name: "Large", Price: 16.00},
				Addons: []AddonOption{{Name: "Extra cheese", Price: 2.00}, {Name: "Olives", Price: 1.50}},
			},
			expected: 19.50,
		},
		{
			name: "stuffed crust surcharge",
			base: 12.50,
			opts: Options{
				StuffedCrust: &AddonOption{Name: "Stuffed crust", Price: 3.00},
			},
			expected: 15.50,
		},
		{
			name: "removed ingredients and notes do not change price",
			base: 12.50,
			opts: Options{
				RemovedIngredients: []string{"onion"},
				Notes:              "well done",
			},
			expected: 12.50,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FinalPrice(tc.base, tc.opts); got != tc.expected {
				t.Fatalf("expected %.2f, got %.2f", tc.expected, got)
			}
		})
	}
}

func TestTotalsMatchItems(t *testing.T) {
	c := New()
	first := c.AddItem(1, "Margherita", 10.00, Options{})
	c.AddItem(2, "Pepperoni", 14.00, Options{Addons: []AddonOption{{Name: "Extra cheese", Price: 2.00}}})
	c.UpdateQuantity(first, 3)

	if got := c.ItemCount(); got != 4 {
		t.Fatalf("expected item count 4, got %d", got)
	}
	if got := c.Total(); got != 3*10.00+16.00 {
		t.Fatalf("expected total 46.00, got %.2f", got)
	}
	for _, item := range c.Items() {
		if item.Quantity < 1 {
			t.Fatalf("stored quantity below 1: %+v", item)
		}
	}
}

func TestAddThenRemoveRestoresPriorState(t *testing.T) {
	c := New()
	c.AddItem(1, "Margherita", 10.00, Options{})
	before := c.Items()

	id := c.AddItem(2, "Pepperoni", 14.00, Options{})
	c.RemoveItem(id)

	if !reflect.DeepEqual(c.Items(), before) {
		t.Fatalf("expected cart restored after add+remove, got %+v", c.Items())
	}
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	c := New()
	id := c.AddItem(1, "Margherita", 10.00, Options{})
	c.UpdateQuantity(id, 0)

	if len(c.Items()) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(c.Items()))
	}

	id = c.AddItem(1, "Margherita", 10.00, Options{})
	c.UpdateQuantity(id, -2)
	if len(c.Items()) != 0 {
		t.Fatalf("expected negative quantity to behave like removal")
	}
}

func TestTotalsZeroBeforeHydration(t *testing.T) {
	c := NewPending()
	if c.ItemCount() != 0 || c.Total() != 0 || len(c.Items()) != 0 {
		t.Fatalf("expected zero totals before hydration")
	}

	c.Hydrate([]byte(`{"items":[{"cartItemId":"ci-1-1","productId":1,"name":"Margherita","quantity":2,"basePrice":10,"finalPrice":10,"options":{}}],"isDelivery":true,"seq":1}`))
	if c.ItemCount() != 2 {
		t.Fatalf("expected count 2 after hydration, got %d", c.ItemCount())
	}
	if c.Total() != 20 {
		t.Fatalf("expected total 20 after hydration, got %.2f", c.Total())
	}
	if !c.IsDelivery() {
		t.Fatalf("expected delivery selection restored")
	}
}

func TestHydrateCorruptSnapshotYieldsEmptyCart(t *testing.T) {
	c := NewPending()
	c.Hydrate([]byte(`{"items": [`))
	if c.ItemCount() != 0 {
		t.Fatalf("expected empty cart from corrupt snapshot")
	}

	// Hydrated now, so future additions must count.
	c.AddItem(1, "Margherita", 10.00, Options{})
	if c.ItemCount() != 1 {
		t.Fatalf("expected cart usable after failed hydration")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New()
	c.AddItem(1, "Margherita", 10.00, Options{Notes: "extra basil"})
	c.SetDelivery(true)

	data, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	restored := NewPending()
	restored.Hydrate(data)
	if !reflect.DeepEqual(restored.Items(), c.Items()) {
		t.Fatalf("items lost in round trip")
	}
	if !restored.IsDelivery() {
		t.Fatalf("delivery flag lost in round trip")
	}
}

func TestClearResetsDelivery(t *testing.T) {
	c := New()
	c.AddItem(1, "Margherita", 10.00, Options{})
	c.SetDelivery(true)
	c.Clear()

	if c.ItemCount() != 0 || c.IsDelivery() {
		t.Fatalf("expected cleared cart with delivery reset")
	}
}
