package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/auth"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
)

type workerView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerWorkersList returns the waiters and drivers associated with the
// owner's restaurant.
func (h *Handler) OwnerWorkersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	rows, err := h.DB.Query(ctx, `
		select id, name, email, role, worker_code, created_at
		from users
		where restaurant_id = $1 and role in ('WAITER', 'DRIVER') and is_active = true
		order by role, name
	`, restaurantID)
	if err != nil {
		h.Logger.Error("workers query failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve workers")
		return
	}
	defer rows.Close()

	workers := make([]workerView, 0)
	for rows.Next() {
		var item workerView
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &item.Role, &item.Code, &item.CreatedAt); err != nil {
			h.Logger.Error("workers scan failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve workers")
			return
		}
		workers = append(workers, item)
	}
	response.Success(w, workers)
}

type associateWorkerRequest struct {
	Code string `json:"code"`
	Role string `json:"role"`
}

// OwnerWorkerAssociate claims a worker by association code. The claim is a
// single conditional UPDATE on an unassociated row, so two restaurants
// entering the same code cannot both win.
func (h *Handler) OwnerWorkerAssociate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	var body associateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.Code))
	role := auth.Role(strings.ToUpper(strings.TrimSpace(body.Role)))
	if code == "" || (role != auth.RoleWaiter && role != auth.RoleDriver) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "A worker code and a role of WAITER or DRIVER are required")
		return
	}

	var workerID int64
	err := h.DB.QueryRow(ctx, `
		update users set restaurant_id = $1, updated_at = now()
		where worker_code = $2 and role = $3 and restaurant_id is null and is_active = true
		returning id
	`, restaurantID, code, string(role)).Scan(&workerID)
	if err == nil {
		response.Success(w, map[string]any{"workerId": workerID})
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		h.Logger.Error("worker association failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Association failed")
		return
	}

	// Zero rows: the code is either unknown or already claimed. Tell the
	// owner which, without mutating anything.
	var claimedBy *int64
	err = h.DB.QueryRow(ctx, `
		select restaurant_id from users where worker_code = $1 and role = $2 and is_active = true
	`, code, string(role)).Scan(&claimedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		response.Error(w, http.StatusNotFound, "WORKER_NOT_FOUND", "No "+strings.ToLower(string(role))+" with that code")
		return
	}
	if err != nil {
		h.Logger.Error("worker lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Association failed")
		return
	}
	if claimedBy != nil && *claimedBy == restaurantID {
		response.Error(w, http.StatusBadRequest, "ALREADY_ASSOCIATED", "Worker is already on your team")
		return
	}
	response.Error(w, http.StatusBadRequest, "ALREADY_ASSOCIATED", "Worker is already associated with another restaurant")
}

// OwnerWorkerRemove detaches a worker from the restaurant. Ownership is
// enforced in the WHERE clause; removing someone else's worker is a 403.
func (h *Handler) OwnerWorkerRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, ok := h.ownerRestaurantID(w, r)
	if !ok {
		return
	}

	workerID, err := readPathInt64(r, "workerId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid worker id is required")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update users set restaurant_id = null, updated_at = now()
		where id = $1 and restaurant_id = $2 and role in ('WAITER', 'DRIVER')
	`, workerID, restaurantID)
	if err != nil {
		h.Logger.Error("worker removal failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Removal failed")
		return
	}
	if tag.RowsAffected() == 0 {
		var otherRestaurant *int64
		err := h.DB.QueryRow(ctx, `
			select restaurant_id from users where id = $1 and role in ('WAITER', 'DRIVER')
		`, workerID).Scan(&otherRestaurant)
		if err == nil && otherRestaurant != nil {
			response.Error(w, http.StatusForbidden, "FORBIDDEN", "Worker belongs to another restaurant")
			return
		}
		response.Error(w, http.StatusNotFound, "WORKER_NOT_FOUND", "Worker not found")
		return
	}
	response.Message(w, "Worker removed")
}
