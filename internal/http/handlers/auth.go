package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dinehub-order-service/internal/auth"
	"dinehub-order-service/internal/utils"
	"dinehub-order-service/pkg/response"

	"github.com/jackc/pgx/v5"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	// RestaurantName is required when signing up as an owner; the
	// restaurant record is created in the same request.
	RestaurantName string `json:"restaurantName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validRoleForSignup(role auth.Role) bool {
	switch role {
	case auth.RoleOwner, auth.RoleWaiter, auth.RoleDriver, auth.RoleCustomer:
		return true
	}
	return false
}

// AuthSignup provisions an identity with its role tag resolved once, at
// write time. Waiters and drivers get an association code they relay to a
// restaurant owner; owners get their restaurant created alongside.
func (h *Handler) AuthSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body signupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	role := auth.Role(strings.ToUpper(strings.TrimSpace(body.Role)))
	if email == "" || body.Password == "" || strings.TrimSpace(body.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email, password and name are required")
		return
	}
	if !validRoleForSignup(role) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Role must be OWNER, WAITER, DRIVER or CUSTOMER")
		return
	}
	if role == auth.RoleOwner && strings.TrimSpace(body.RestaurantName) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Restaurant name is required for owner signup")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		h.Logger.Error("password hash failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Signup failed")
		return
	}

	var workerCode *string
	if role == auth.RoleWaiter || role == auth.RoleDriver {
		code := utils.RandomCode(6)
		workerCode = &code
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Signup failed")
		return
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `
		insert into users (email, password_hash, name, phone, role, worker_code)
		values ($1, $2, $3, nullif($4, ''), $5, $6)
		on conflict (email) do nothing
		returning id
	`, email, hash, strings.TrimSpace(body.Name), strings.TrimSpace(body.Phone), string(role), workerCode).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusBadRequest, "EMAIL_TAKEN", "An account with this email already exists")
			return
		}
		h.Logger.Error("signup insert failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Signup failed")
		return
	}

	var restaurantID *int64
	if role == auth.RoleOwner {
		var id int64
		code := utils.RandomCode(6)
		err = tx.QueryRow(ctx, `
			insert into restaurants (owner_user_id, name, code)
			values ($1, $2, $3)
			returning id
		`, userID, strings.TrimSpace(body.RestaurantName), code).Scan(&id)
		if err != nil {
			h.Logger.Error("restaurant insert failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Signup failed")
			return
		}
		if _, err := tx.Exec(ctx, `update users set restaurant_id = $1 where id = $2`, id, userID); err != nil {
			h.Logger.Error("owner link failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Signup failed")
			return
		}
		restaurantID = &id
	}

	if err := tx.Commit(ctx); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Signup failed")
		return
	}

	token, err := auth.NewAccessToken(&auth.Claims{
		UserID:       userID,
		Role:         role,
		Email:        email,
		RestaurantID: restaurantID,
	}, h.Config.JWTSecret, time.Duration(h.Config.JWTExpirySeconds)*time.Second)
	if err != nil {
		h.Logger.Error("token sign failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Signup failed")
		return
	}

	data := map[string]any{
		"token":    token,
		"userId":   userID,
		"role":     role,
		"homePath": auth.HomePath(role),
	}
	if workerCode != nil {
		data["associationCode"] = *workerCode
	}
	if restaurantID != nil {
		data["restaurantId"] = *restaurantID
	}
	response.Created(w, data)
}

func (h *Handler) AuthLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
		return
	}

	var (
		userID       int64
		passwordHash string
		role         string
		restaurantID *int64
		isActive     bool
	)
	err := h.DB.QueryRow(ctx, `
		select id, password_hash, coalesce(role, ''), restaurant_id, is_active
		from users where email = $1
	`, email).Scan(&userID, &passwordHash, &role, &restaurantID, &isActive)
	if err != nil || !isActive || !auth.CheckPassword(passwordHash, body.Password) {
		// Same answer for unknown email and wrong password.
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
		return
	}

	resolved := auth.Role(role)
	if resolved == "" {
		resolved, err = auth.ResolveRole(ctx, h.DB, userID)
		if err != nil {
			h.Logger.Error("role resolution failed", zapError(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
			return
		}
	}

	token, err := auth.NewAccessToken(&auth.Claims{
		UserID:       userID,
		Role:         resolved,
		Email:        email,
		RestaurantID: restaurantID,
	}, h.Config.JWTSecret, time.Duration(h.Config.JWTExpirySeconds)*time.Second)
	if err != nil {
		h.Logger.Error("token sign failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	response.Success(w, map[string]any{
		"token":    token,
		"userId":   userID,
		"role":     resolved,
		"homePath": auth.HomePath(resolved),
	})
}

// AuthRole resolves the caller's role and home path. Unprovisioned
// identities are not an error: they get role NONE and the signup path.
func (h *Handler) AuthRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := auth.ParseBearerToken(r.Header.Get("Authorization"))
	claims, err := auth.VerifyAccessToken(token, h.Config.JWTSecret)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
		return
	}

	role, err := auth.ResolveRole(ctx, h.DB, claims.UserID)
	if err != nil {
		h.Logger.Error("role resolution failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Role lookup failed")
		return
	}

	response.Success(w, map[string]any{
		"role":     role,
		"homePath": auth.HomePath(role),
	})
}
