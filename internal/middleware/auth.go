package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"dinehub-order-service/internal/auth"

	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const authContextKey contextKey = "authContext"

// AuthContext is the explicit, injected replacement for the previous
// platform's ambient signed-in user. Handlers read it from the request
// context; nothing global.
type AuthContext struct {
	UserID       int64
	Role         auth.Role
	Email        string
	RestaurantID *int64
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// RequireRole verifies the bearer token, checks the account is still active
// and refreshes role/restaurant linkage from the database (the token's copy
// may be stale after an owner removed a worker). A wrong role is 403; a
// missing or bad token is 401.
func RequireRole(db *pgxpool.Pool, jwtSecret string, roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
				return
			}

			var (
				role         string
				restaurantID *int64
				isActive     bool
			)
			err = db.QueryRow(r.Context(),
				`select coalesce(role, ''), restaurant_id, is_active from users where id = $1`,
				claims.UserID).Scan(&role, &restaurantID, &isActive)
			if err != nil || !isActive {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Account not found or disabled")
				return
			}

			if _, ok := allowed[auth.Role(role)]; !ok {
				// Role mismatch is not a dead end for a browser: tell the
				// client where this identity's own home is.
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN",
					"Access restricted; your dashboard is at "+auth.HomePath(auth.Role(role)))
				return
			}

			authCtx := &AuthContext{
				UserID:       claims.UserID,
				Role:         auth.Role(role),
				Email:        claims.Email,
				RestaurantID: restaurantID,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

// OptionalAuth attaches an AuthContext when a valid bearer token is present
// and lets the request through anonymously otherwise. Checkout uses it:
// anonymous checkout is allowed, but a signed-in customer gets their id
// attached to the session.
func OptionalAuth(db *pgxpool.Pool, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			var (
				role         string
				restaurantID *int64
				isActive     bool
			)
			if err := db.QueryRow(r.Context(),
				`select coalesce(role, ''), restaurant_id, is_active from users where id = $1`,
				claims.UserID).Scan(&role, &restaurantID, &isActive); err != nil || !isActive {
				next.ServeHTTP(w, r)
				return
			}

			authCtx := &AuthContext{
				UserID:       claims.UserID,
				Role:         auth.Role(role),
				Email:        claims.Email,
				RestaurantID: restaurantID,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}
