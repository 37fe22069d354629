package services

import (
	"errors"
	"fmt"
)

// ErrorCode 業務錯誤代碼，handlers 依此對應 HTTP 狀態與 ERR_* 代碼
type ErrorCode string

const (
	CodeInvalidInterval     ErrorCode = "INVALID_INTERVAL"
	CodeLocationNotFound    ErrorCode = "LOCATION_NOT_FOUND"
	CodeLocationInactive    ErrorCode = "LOCATION_INACTIVE"
	CodeCapacityExceeded    ErrorCode = "CAPACITY_EXCEEDED"
	CodeNoCapacity          ErrorCode = "NO_CAPACITY"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeNotCancellable      ErrorCode = "NOT_CANCELLABLE"
	CodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	CodeCheckInWindow       ErrorCode = "CHECK_IN_WINDOW"
	CodeTransactionConflict ErrorCode = "TRANSACTION_CONFLICT"
	CodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
	CodeVehicleNotFound     ErrorCode = "VEHICLE_NOT_FOUND"
	CodeMemberNotFound      ErrorCode = "MEMBER_NOT_FOUND"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	CodeAlreadyPaid         ErrorCode = "ALREADY_PAID"
	CodeFeedbackExists      ErrorCode = "FEEDBACK_EXISTS"
	CodeInvalidRating       ErrorCode = "INVALID_RATING"
	CodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	CodeInvalidCapacity     ErrorCode = "INVALID_CAPACITY"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeAlreadyExists       ErrorCode = "ALREADY_EXISTS"
	CodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
)

// BookingError 回傳給呼叫端的型別化錯誤
type BookingError struct {
	Code        ErrorCode
	Message     string
	Capacity    int
	Overlapping int
	Err         error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BookingError) Unwrap() error { return e.Err }

// Is 以 Code 比對，讓帶有診斷資訊的錯誤仍可與哨兵值比對
func (e *BookingError) Is(target error) bool {
	var t *BookingError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func newError(code ErrorCode, message string) *BookingError {
	return &BookingError{Code: code, Message: message}
}

var (
	ErrInvalidInterval     = newError(CodeInvalidInterval, "end time must be after start time")
	ErrLocationNotFound    = newError(CodeLocationNotFound, "parking location not found")
	ErrLocationInactive    = newError(CodeLocationInactive, "parking location is not active")
	ErrCapacityExceeded    = newError(CodeCapacityExceeded, "fully booked for this time slot")
	ErrNoCapacity          = newError(CodeNoCapacity, "no available slots left at this location")
	ErrReservationNotFound = newError(CodeNotFound, "reservation not found")
	ErrNotCancellable      = newError(CodeNotCancellable, "reservation can no longer be cancelled")
	ErrInvalidTransition   = newError(CodeInvalidTransition, "invalid reservation status transition")
	ErrCheckInWindow       = newError(CodeCheckInWindow, "check-in is only allowed during the reserved time window")
	ErrTransactionConflict = newError(CodeTransactionConflict, "transaction conflict, please retry")
	ErrStoreUnavailable    = newError(CodeStoreUnavailable, "storage unavailable")
	ErrVehicleNotFound     = newError(CodeVehicleNotFound, "vehicle not registered to this member")
	ErrMemberNotFound      = newError(CodeMemberNotFound, "member not found")
	ErrForbidden           = newError(CodeForbidden, "you can only act on your own reservations")
	ErrInsufficientFunds   = newError(CodeInsufficientFunds, "insufficient wallet balance")
	ErrAlreadyPaid         = newError(CodeAlreadyPaid, "reservation already paid")
	ErrFeedbackExists      = newError(CodeFeedbackExists, "feedback already submitted")
	ErrInvalidRating       = newError(CodeInvalidRating, "rating must be between 1 and 5")
	ErrInvalidAmount       = newError(CodeInvalidAmount, "amount must be positive")
	ErrInvalidCapacity     = newError(CodeInvalidCapacity, "total slots must not be negative")
	ErrInvalidCredentials  = newError(CodeInvalidCredentials, "invalid email or password")
)

func invalidInput(format string, args ...interface{}) *BookingError {
	return &BookingError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func alreadyExists(format string, args ...interface{}) *BookingError {
	return &BookingError{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// capacityExceeded 回報容量與重疊數
func capacityExceeded(capacity, overlapping int) *BookingError {
	return &BookingError{
		Code:        CodeCapacityExceeded,
		Message:     fmt.Sprintf("fully booked for this time slot: capacity %d, overlapping %d", capacity, overlapping),
		Capacity:    capacity,
		Overlapping: overlapping,
	}
}

func transitionError(from, to string) *BookingError {
	return &BookingError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot move reservation from %s to %s", from, to),
	}
}

func notCancellable(status string) *BookingError {
	return &BookingError{
		Code:    CodeNotCancellable,
		Message: fmt.Sprintf("reservation with status %s cannot be cancelled", status),
	}
}

// CodeOf 取出錯誤代碼，非業務錯誤回傳空字串
func CodeOf(err error) ErrorCode {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsBusinessError 業務規則錯誤不重試
func IsBusinessError(err error) bool {
	code := CodeOf(err)
	return code != "" && code != CodeTransactionConflict && code != CodeStoreUnavailable
}
