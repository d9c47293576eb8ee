package service

import "errors"

var (
	// ErrInvalidUserID is returned when the user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidAmount is returned when the payment amount is not positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidReference is returned when the transaction reference is empty.
	ErrInvalidReference = errors.New("invalid transaction reference")

	// ErrInvalidProperty is returned when the referenced property does not exist.
	ErrInvalidProperty = errors.New("invalid property id")

	// ErrInvalidRoom is returned when the referenced room does not exist.
	ErrInvalidRoom = errors.New("invalid room id")

	// ErrRoomPropertyMismatch is returned when the room does not belong to
	// the specified property.
	ErrRoomPropertyMismatch = errors.New("room does not belong to the specified property")

	// ErrInvalidSignature is returned when a webhook signature does not
	// match. Surfaced as 403 with no detail.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload is returned when a webhook body cannot be parsed.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrGatewayUnavailable is returned when the payment provider cannot be
	// reached or rejects an initialization. Full detail is logged, callers
	// get a generic message.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
