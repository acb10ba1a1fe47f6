package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/disintegration/imaging"
	"github.com/jackc/pgx/v5"
)

// Menu photos are normalized to a bounded JPEG so the public menu stays
// fast regardless of what the owner uploads.
const (
	menuImageMaxEdge = 1280
	menuImageQuality = 82
)

// OwnerMenuUploadImage accepts a multipart image for a menu item, resizes
// it and stores it in the object store. The item's image_url is replaced;
// the previous object is deleted best-effort.
func (h *Handler) OwnerMenuUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}
	if h.Store == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Image storage is not configured")
		return
	}

	itemID, err := readPathInt64(r, "itemId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid item id is required")
		return
	}

	var currentURL *string
	err = h.DB.QueryRow(ctx, `
		select image_url from menu_items where id = $1 and restaurant_id = $2
	`, itemID, restaurantID).Scan(&currentURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu item not found")
			return
		}
		h.Logger.Error("menu item lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Upload failed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxFileSizeBytes)
	if err := r.ParseMultipartForm(h.Config.MaxFileSizeBytes); err != nil {
		response.Error(w, http.StatusBadRequest, "FILE_TOO_LARGE", "Image exceeds the upload size limit")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "An image file is required in the 'image' field")
		return
	}
	defer file.Close()

	src, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_IMAGE", "File could not be decoded as an image")
		return
	}

	bounds := src.Bounds()
	if bounds.Dx() > menuImageMaxEdge || bounds.Dy() > menuImageMaxEdge {
		src = imaging.Fit(src, menuImageMaxEdge, menuImageMaxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(menuImageQuality)); err != nil {
		h.Logger.Error("image encode failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Upload failed")
		return
	}

	key := fmt.Sprintf("menu/%d/%d-%d-%s.jpg", restaurantID, itemID, time.Now().Unix(), strings.ToLower(utils.RandomCode(4)))
	url, err := h.Store.PutObject(ctx, key, buf.Bytes(), "image/jpeg")
	if err != nil {
		h.Logger.Error("object store put failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Upload failed")
		return
	}

	if _, err := h.DB.Exec(ctx, `
		update menu_items set image_url = $1, updated_at = now()
		where id = $2 and restaurant_id = $3
	`, url, itemID, restaurantID); err != nil {
		h.Logger.Error("image url persist failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Upload failed")
		return
	}

	if currentURL != nil {
		if key, ok := h.Store.KeyFromURL(*currentURL); ok {
			if err := h.Store.DeleteKey(ctx, key); err != nil {
				h.Logger.Warn("stale image delete failed", zapError(err))
			}
		}
	}

	response.Success(w, map[string]any{"imageUrl": url})
}
