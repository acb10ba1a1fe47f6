package table

import "net/http"

type ErrorCode string

const (
	ErrTableExists        ErrorCode = "TABLE_EXISTS"
	ErrTableNotFound      ErrorCode = "TABLE_NOT_FOUND"
	ErrSeatNotFound       ErrorCode = "SEAT_NOT_FOUND"
	ErrLastSeat           ErrorCode = "LAST_SEAT"
	ErrSeatHasDraftItems  ErrorCode = "SEAT_HAS_DRAFT_ITEMS"
	ErrSeatHasPlacedItems ErrorCode = "SEAT_HAS_PLACED_ITEMS"
	ErrNothingSubmitted   ErrorCode = "NOTHING_SUBMITTED"
	ErrInvalidPayment     ErrorCode = "INVALID_PAYMENT_METHOD"
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

func notFoundError(code ErrorCode, message string) *Error {
	return newError(code, message, http.StatusNotFound)
}
