package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Identity rows carry an explicit role tag written once at signup. Older
// rows imported from the previous platform may have an empty tag; for those
// ResolveRole falls back to probing the ownership and worker links in a
// fixed order: owner first, then waiter, then driver. First match wins.
func ResolveRole(ctx context.Context, db *pgxpool.Pool, userID int64) (Role, error) {
	var tagged string
	err := db.QueryRow(ctx, `select coalesce(role, '') from users where id = $1`, userID).Scan(&tagged)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleNone, nil
		}
		return RoleNone, err
	}
	switch Role(tagged) {
	case RoleOwner, RoleWaiter, RoleDriver, RoleCustomer:
		return Role(tagged), nil
	}

	probes := []struct {
		role  Role
		query string
	}{
		{RoleOwner, `select 1 from restaurants where owner_user_id = $1 limit 1`},
		{RoleWaiter, `select 1 from users where id = $1 and worker_code is not null and role = 'WAITER' limit 1`},
		{RoleDriver, `select 1 from users where id = $1 and worker_code is not null and role = 'DRIVER' limit 1`},
	}
	for _, probe := range probes {
		var one int
		err := db.QueryRow(ctx, probe.query, userID).Scan(&one)
		if err == nil {
			return probe.role, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return RoleNone, err
		}
	}
	return RoleNone, nil
}

// HomePath is where a role-gated page redirects an identity whose role does
// not match the requested area. Unprovisioned identities go to signup.
func HomePath(role Role) string {
	switch role {
	case RoleOwner:
		return "/dashboard"
	case RoleWaiter:
		return "/waiter/dashboard"
	case RoleDriver:
		return "/driver/dashboard"
	case RoleCustomer:
		return "/"
	default:
		return "/signup"
	}
}
