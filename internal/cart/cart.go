package cart

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
)

// Options captures the customizations chosen for one line item. All fields
// are optional; the zero value means "no customization".
type Options struct {
	Size               *SizeOption   `json:"size,omitempty"`
	Addons             []AddonOption `json:"addons,omitempty"`
	StuffedCrust       *AddonOption  `json:"stuffedCrust,omitempty"`
	RemovedIngredients []string      `json:"removedIngredients,omitempty"`
	Notes              string        `json:"notes,omitempty"`
}

type SizeOption struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type AddonOption struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Item struct {
	CartItemID string  `json:"cartItemId"`
	ProductID  int64   `json:"productId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	BasePrice  float64 `json:"basePrice"`
	FinalPrice float64 `json:"finalPrice"`
	Options    Options `json:"options"`
}

// Cart accumulates a customer's selection. Derived totals read as zero until
// Hydrate has run, so a view never renders stale numbers while the persisted
// snapshot is still being loaded.
type Cart struct {
	items      []Item
	isDelivery bool
	hydrated   bool
	seq        atomic.Int64
}

func New() *Cart {
	c := &Cart{}
	c.hydrated = true
	return c
}

// NewPending returns a cart that reports zero totals until Hydrate is called.
func NewPending() *Cart {
	return &Cart{}
}

// FinalPrice derives the unit price once, at add time: the chosen size
// overrides the base price, add-ons and the stuffed-crust surcharge are
// summed on top. It is never recomputed if catalog prices change later.
func FinalPrice(basePrice float64, opts Options) float64 {
	price := basePrice
	if opts.Size != nil {
		price = opts.Size.Price
	}
	for _, addon := range opts.Addons {
		price += addon.Price
	}
	if opts.StuffedCrust != nil {
		price += opts.StuffedCrust.Price
	}
	return price
}

// AddItem appends a new line with quantity 1 and a fresh cart item id, and
// returns the id so the caller can later update or remove the line.
func (c *Cart) AddItem(productID int64, name string, basePrice float64, opts Options) string {
	id := "ci-" + strconv.FormatInt(c.seq.Add(1), 10) + "-" + strconv.FormatInt(productID, 10)
	c.items = append(c.items, Item{
		CartItemID: id,
		ProductID:  productID,
		Name:       name,
		Quantity:   1,
		BasePrice:  basePrice,
		FinalPrice: FinalPrice(basePrice, opts),
		Options:    opts,
	})
	return id
}

// RemoveItem drops the line by filtering; quantities are never zeroed in
// place.
func (c *Cart) RemoveItem(cartItemID string) {
	kept := c.items[:0]
	for _, item := range c.items {
		if item.CartItemID != cartItemID {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// UpdateQuantity sets the line's quantity in place. A quantity of zero or
// less is equivalent to RemoveItem.
func (c *Cart) UpdateQuantity(cartItemID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(cartItemID)
		return
	}
	for i := range c.items {
		if c.items[i].CartItemID == cartItemID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart and resets the delivery selection.
func (c *Cart) Clear() {
	c.items = nil
	c.isDelivery = false
}

func (c *Cart) SetDelivery(isDelivery bool) { c.isDelivery = isDelivery }

func (c *Cart) IsDelivery() bool { return c.hydrated && c.isDelivery }

func (c *Cart) Items() []Item {
	if !c.hydrated {
		return nil
	}
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) ItemCount() int {
	if !c.hydrated {
		return 0
	}
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) Total() float64 {
	if !c.hydrated {
		return 0
	}
	total := 0.0
	for _, item := range c.items {
		total += item.FinalPrice * float64(item.Quantity)
	}
	return total
}

type snapshot struct {
	Items      []Item `json:"items"`
	IsDelivery bool   `json:"isDelivery"`
	Seq        int64  `json:"seq"`
}

// Snapshot serializes the cart for client-local persistence. Best effort:
// callers may ignore the error without breaking the session.
func (c *Cart) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{Items: c.items, IsDelivery: c.isDelivery, Seq: c.seq.Load()})
}

// Hydrate loads a previously stored snapshot and unlocks the derived totals.
// A corrupt or empty snapshot hydrates to an empty cart; storage problems
// must never take the session down.
func (c *Cart) Hydrate(data []byte) {
	defer func() { c.hydrated = true }()
	if len(data) == 0 {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return
	}
	for _, item := range snap.Items {
		if item.Quantity < 1 {
			return
		}
	}
	c.items = snap.Items
	c.isDelivery = snap.IsDelivery
	c.seq.Store(snap.Seq)
}
