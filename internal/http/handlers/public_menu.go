package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type publicMenuItem struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Description          *string         `json:"description"`
	BasePrice            float64         `json:"basePrice"`
	Sizes                json.RawMessage `json:"sizes"`
	Addons               json.RawMessage `json:"addons"`
	StuffedCrustPrice    *float64        `json:"stuffedCrustPrice,omitempty"`
	RemovableIngredients json.RawMessage `json:"removableIngredients"`
	ImageURL             *string         `json:"imageUrl"`
}

// PublicMenu serves a restaurant's browsable menu by its public share code.
// Inactive items stay hidden from customers.
func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := strings.ToUpper(strings.TrimSpace(readPathString(r, "restaurantCode")))
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Restaurant code is required")
		return
	}

	var (
		restaurantID int64
		name         string
		address      pgtype.Text
		currency     string
	)
	err := h.DB.QueryRow(ctx, `
		select id, name, address, currency from restaurants where code = $1
	`, code).Scan(&restaurantID, &name, &address, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Restaurant not found")
			return
		}
		h.Logger.Error("public menu restaurant lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load menu")
		return
	}

	rows, err := h.DB.Query(ctx, `
		select id, name, description, base_price, sizes, addons, stuffed_crust_price, removable_ingredients, image_url
		from menu_items
		where restaurant_id = $1 and is_active = true
		order by name asc
	`, restaurantID)
	if err != nil {
		h.Logger.Error("public menu query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load menu")
		return
	}
	defer rows.Close()

	items := make([]publicMenuItem, 0)
	for rows.Next() {
		var (
			item        publicMenuItem
			description pgtype.Text
			basePrice   pgtype.Numeric
			crustPrice  pgtype.Numeric
			imageURL    pgtype.Text
		)
		if err := rows.Scan(&item.ID, &item.Name, &description, &basePrice, &item.Sizes, &item.Addons, &crustPrice, &item.RemovableIngredients, &imageURL); err != nil {
			h.Logger.Error("public menu scan failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load menu")
			return
		}
		item.Description = nullableText(description)
		item.ImageURL = nullableText(imageURL)
		item.BasePrice = utils.NumericToFloat64(basePrice)
		if crustPrice.Valid {
			price := utils.NumericToFloat64(crustPrice)
			item.StuffedCrustPrice = &price
		}
		items = append(items, item)
	}

	response.Success(w, map[string]any{
		"restaurant": map[string]any{
			"id":       restaurantID,
			"name":     name,
			"address":  nullableText(address),
			"currency": currency,
			"code":     code,
		},
		"items": items,
	})
}
