package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/cart"
	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type menuItemView struct {
	ID                   int64              `json:"id"`
	Name                 string             `json:"name"`
	Description          *string            `json:"description,omitempty"`
	BasePrice            float64            `json:"basePrice"`
	Sizes                []cart.SizeOption  `json:"sizes"`
	Addons               []cart.AddonOption `json:"addons"`
	StuffedCrustPrice    *float64           `json:"stuffedCrustPrice,omitempty"`
	RemovableIngredients []string           `json:"removableIngredients"`
	ImageURL             *string            `json:"imageUrl,omitempty"`
	IsActive             bool               `json:"isActive"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

type menuItemRequest struct {
	Name                 string             `json:"name"`
	Description          *string            `json:"description"`
	BasePrice            float64            `json:"basePrice"`
	Sizes                []cart.SizeOption  `json:"sizes"`
	Addons               []cart.AddonOption `json:"addons"`
	StuffedCrustPrice    *float64           `json:"stuffedCrustPrice"`
	RemovableIngredients []string           `json:"removableIngredients"`
	IsActive             *bool              `json:"isActive"`
}

func (req *menuItemRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "Item name is required"
	}
	if req.BasePrice <= 0 {
		return "Base price must be positive"
	}
	for _, size := range req.Sizes {
		if strings.TrimSpace(size.Name) == "" || size.Price <= 0 {
			return "Each size needs a name and a positive price"
		}
	}
	for _, addon := range req.Addons {
		if strings.TrimSpace(addon.Name) == "" || addon.Price < 0 {
			return "Each addon needs a name and a non-negative price"
		}
	}
	if req.StuffedCrustPrice != nil && *req.StuffedCrustPrice < 0 {
		return "Stuffed crust price cannot be negative"
	}
	return ""
}

func scanMenuItem(row pgx.Row) (menuItemView, error) {
	var (
		item         menuItemView
		description  pgtype.Text
		basePrice    pgtype.Numeric
		crustPrice   pgtype.Numeric
		sizesJSON    []byte
		addonsJSON   []byte
		removedJSON  []byte
		imageURL     pgtype.Text
	)
	err := row.Scan(&item.ID, &item.Name, &description, &basePrice, &sizesJSON, &addonsJSON,
		&crustPrice, &removedJSON, &imageURL, &item.IsActive, &item.UpdatedAt)
	if err != nil {
		return item, err
	}
	item.Description = nullableText(description)
	item.BasePrice = utils.NumericToFloat64(basePrice)
	if crustPrice.Valid {
		price := utils.NumericToFloat64(crustPrice)
		item.StuffedCrustPrice = &price
	}
	item.ImageURL = nullableText(imageURL)
	item.Sizes = []cart.SizeOption{}
	item.Addons = []cart.AddonOption{}
	item.RemovableIngredients = []string{}
	_ = json.Unmarshal(sizesJSON, &item.Sizes)
	_ = json.Unmarshal(addonsJSON, &item.Addons)
	_ = json.Unmarshal(removedJSON, &item.RemovableIngredients)
	return item, nil
}

const menuItemColumns = `id, name, description, base_price, sizes, addons, stuffed_crust_price, removable_ingredients, image_url, is_active, updated_at`

// OwnerMenuList returns the full menu, inactive items included, so owners
// can toggle availability without losing the item.
func (h *Handler) OwnerMenuList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	rows, err := h.DB.Query(ctx, `
		select `+menuItemColumns+` from menu_items where restaurant_id = $1 order by name
	`, restaurantID)
	if err != nil {
		h.Logger.Error("menu query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve menu")
		return
	}
	defer rows.Close()

	items := make([]menuItemView, 0)
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			h.Logger.Error("menu scan failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve menu")
			return
		}
		items = append(items, item)
	}
	response.Success(w, items)
}

func (h *Handler) OwnerMenuCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	var body menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	sizes, _ := json.Marshal(body.Sizes)
	addons, _ := json.Marshal(body.Addons)
	removable, _ := json.Marshal(body.RemovableIngredients)
	if body.Sizes == nil {
		sizes = []byte("[]")
	}
	if body.Addons == nil {
		addons = []byte("[]")
	}
	if body.RemovableIngredients == nil {
		removable = []byte("[]")
	}

	row := h.DB.QueryRow(ctx, `
		insert into menu_items (restaurant_id, name, description, base_price, sizes, addons, stuffed_crust_price, removable_ingredients)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+menuItemColumns+`
	`, restaurantID, strings.TrimSpace(body.Name), body.Description, body.BasePrice, sizes, addons, body.StuffedCrustPrice, removable)

	item, err := scanMenuItem(row)
	if err != nil {
		h.Logger.Error("menu item insert failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Item creation failed")
		return
	}
	response.Created(w, item)
}

func (h *Handler) OwnerMenuUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	itemID, err := readPathInt64(r, "itemId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid item id is required")
		return
	}

	var body menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	sizes, _ := json.Marshal(body.Sizes)
	addons, _ := json.Marshal(body.Addons)
	removable, _ := json.Marshal(body.RemovableIngredients)
	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	row := h.DB.QueryRow(ctx, `
		update menu_items
		set name = $1, description = $2, base_price = $3, sizes = $4, addons = $5,
		    stuffed_crust_price = $6, removable_ingredients = $7, is_active = $8, updated_at = now()
		where id = $9 and restaurant_id = $10
		returning `+menuItemColumns+`
	`, strings.TrimSpace(body.Name), body.Description, body.BasePrice, sizes, addons,
		body.StuffedCrustPrice, removable, isActive, itemID, restaurantID)

	item, err := scanMenuItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
			return
		}
		h.Logger.Error("menu item update failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Item update failed")
		return
	}
	response.Success(w, item)
}

// OwnerMenuDelete deactivates rather than deletes when order history points
// at the item, so past orders keep resolving their item names.
func (h *Handler) OwnerMenuDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	itemID, err := readPathInt64(r, "itemId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid item id is required")
		return
	}

	var referenced bool
	if err := h.DB.QueryRow(ctx, `
		select exists(select 1 from order_items where product_id = $1)
	`, itemID).Scan(&referenced); err != nil {
		h.Logger.Error("menu item reference check failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Item deletion failed")
		return
	}

	var tag int64
	if referenced {
		result, err := h.DB.Exec(ctx, `
			update menu_items set is_active = false, updated_at = now()
			where id = $1 and restaurant_id = $2
		`, itemID, restaurantID)
		if err != nil {
			h.Logger.Error("menu item deactivate failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Item deletion failed")
			return
		}
		tag = result.RowsAffected()
	} else {
		result, err := h.DB.Exec(ctx, `
			delete from menu_items where id = $1 and restaurant_id = $2
		`, itemID, restaurantID)
		if err != nil {
			h.Logger.Error("menu item delete failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Item deletion failed")
			return
		}
		tag = result.RowsAffected()
	}

	if tag == 0 {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
		return
	}
	response.Message(w, "Menu item removed")
}
