package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"dinehub-order-service/internal/config"
	"dinehub-order-service/internal/payments"
	"dinehub-order-service/internal/queue"
	"dinehub-order-service/internal/storage"
	"dinehub-order-service/internal/table"
	"dinehub-order-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *pgxpool.Pool
	Logger   *zap.Logger
	Config   config.Config
	Queue    *queue.Client
	Payments *payments.Client
	Store    *storage.ObjectStore
}

func zapError(err error) zap.Field {
	return zap.Error(err)
}

var errMissingParam = errors.New("missing param")

func readPathString(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func readPathInt64(r *http.Request, key string) (int64, error) {
	value := readPathString(r, key)
	if value == "" {
		return 0, errMissingParam
	}
	var out int64
	_, err := fmt.Sscan(value, &out)
	return out, err
}

func readPathInt(r *http.Request, key string) (int, error) {
	value, err := readPathInt64(r, key)
	return int(value), err
}

func nullableText(value pgtype.Text) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

// writeDomainError translates typed domain errors (table, payments) into
// the response envelope; anything untyped is reported as a 500 without
// leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	var tableErr *table.Error
	if errors.As(err, &tableErr) {
		response.Error(w, tableErr.StatusCode, string(tableErr.Code), tableErr.Message)
		return
	}
	var payErr *payments.Error
	if errors.As(err, &payErr) {
		response.Error(w, payErr.StatusCode, string(payErr.Code), payErr.Message)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
}
