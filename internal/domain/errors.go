package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// ErrRateLimited is returned when an OTP is requested again inside the cooldown window.
	ErrRateLimited = errors.New("rate limited")

	// ErrDeliveryFailed means the code was persisted but the SMS send failed.
	// The code is still valid; the caller should offer a resend.
	ErrDeliveryFailed = errors.New("delivery failed")
)
