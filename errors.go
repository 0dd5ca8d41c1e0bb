/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"net/http"
)

// Codes for rejected operations. Every core operation either succeeds or
// returns exactly one of these wrapped in an OpError; nothing panics for
// validated conditions.
type ErrorCode string

const (
	ErrInvalidSession   ErrorCode = "invalidSession"
	ErrRoomNotFound     ErrorCode = "roomNotFound"
	ErrForbidden        ErrorCode = "forbidden"
	ErrInvalidRoleSet   ErrorCode = "invalidRoleSet"
	ErrInvalidContent   ErrorCode = "invalidContent"
	ErrInvalidRecipient ErrorCode = "invalidRecipient"
	ErrCountMismatch    ErrorCode = "countMismatch"
	ErrPlayerNotInRoom  ErrorCode = "playerNotInRoom"
)

// OpError is a rejected operation: a stable machine code plus a
// human-readable reason suitable for transient display.
type OpError struct {
	Code   ErrorCode `json:"code"`
	Reason string    `json:"reason"`
}

func (e *OpError) Error() string {
	return string(e.Code) + ": " + e.Reason
}

func failf(code ErrorCode, format string, args ...any) *OpError {
	return &OpError{
		Code:   code,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (e *OpError) httpStatus() int {
	switch e.Code {
	case ErrInvalidSession:
		return http.StatusUnauthorized
	case ErrRoomNotFound:
		return http.StatusNotFound
	case ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
