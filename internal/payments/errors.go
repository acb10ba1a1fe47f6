package payments

import "net/http"

type ErrorCode string

const (
	ErrCartEmpty            ErrorCode = "CART_EMPTY"
	ErrCartTooLarge         ErrorCode = "CART_TOO_LARGE"
	ErrMetadataCorrupt      ErrorCode = "METADATA_CORRUPT"
	ErrRenewalTooEarly      ErrorCode = "RENEWAL_TOO_EARLY"
	ErrSubscriptionMissing  ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrSubscriptionCanceled ErrorCode = "SUBSCRIPTION_CANCELED"
	ErrProvider             ErrorCode = "PAYMENT_PROVIDER_ERROR"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code ErrorCode, message string, status int) *Error {
	return &Error{Code: code, Message: message, StatusCode: status}
}

func validationError(code ErrorCode, message string) *Error {
	return newError(code, message, http.StatusBadRequest)
}

func providerError(message string) *Error {
	return newError(ErrProvider, message, http.StatusInternalServerError)
}
