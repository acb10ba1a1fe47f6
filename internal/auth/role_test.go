package auth

import (
	"testing"
	"time"
)

func TestHomePath(t *testing.T) {
	cases := []struct {
		name     string
		role     Role
		expected string
	}{
		{"owner", RoleOwner, "/dashboard"},
		{"waiter", RoleWaiter, "/waiter/dashboard"},
		{"driver", RoleDriver, "/driver/dashboard"},
		{"customer", RoleCustomer, "/"},
		{"unprovisioned routes to signup", RoleNone, "/signup"},
		{"unknown tag routes to signup", Role("ADMIN"), "/signup"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HomePath(tc.role); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestParseBearerToken(t *testing.T) {
	if got := ParseBearerToken("Bearer abc.def.ghi"); got != "abc.def.ghi" {
		t.Fatalf("expected token, got %q", got)
	}
	if got := ParseBearerToken("bearer abc"); got != "abc" {
		t.Fatalf("expected case-insensitive scheme, got %q", got)
	}
	if got := ParseBearerToken("Basic abc"); got != "" {
		t.Fatalf("expected empty for non-bearer, got %q", got)
	}
	if got := ParseBearerToken(""); got != "" {
		t.Fatalf("expected empty for missing header, got %q", got)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	restaurantID := int64(42)
	claims := &Claims{
		UserID:       7,
		Role:         RoleDriver,
		Email:        "driver@example.com",
		RestaurantID: &restaurantID,
	}

	token, err := NewAccessToken(claims, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	parsed, err := VerifyAccessToken(token, "test-secret")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if parsed.UserID != 7 || parsed.Role != RoleDriver {
		t.Fatalf("claims lost in round trip: %+v", parsed)
	}
	if parsed.RestaurantID == nil || *parsed.RestaurantID != 42 {
		t.Fatalf("restaurantId lost in round trip")
	}

	if _, err := VerifyAccessToken(token, "wrong-secret"); err == nil {
		t.Fatalf("expected verification failure with wrong secret")
	}
	if _, err := VerifyAccessToken("", "test-secret"); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
