// Package errors holds the categories vendor response codes are homologated into.
package errors

// ErrorCategory is the coarse meaning of an acquirer response code
type ErrorCategory string

const (
	CategoryApproved          ErrorCategory = "approved"
	CategoryDeclined          ErrorCategory = "declined"
	CategoryInsufficientFunds ErrorCategory = "insufficient_funds"
	CategoryInvalidCard       ErrorCategory = "invalid_card"
	CategoryExpiredCard       ErrorCategory = "expired_card"
	CategoryFraud             ErrorCategory = "fraud"
	CategorySystemError       ErrorCategory = "system_error"
	CategoryNetworkError      ErrorCategory = "network_error"
	CategoryInvalidRequest    ErrorCategory = "invalid_request"
)

// IsTransport reports categories caused by the acquirer link rather than the card
func (c ErrorCategory) IsTransport() bool {
	return c == CategoryNetworkError || c == CategorySystemError
}

