package billing

import (
	"errors"
	"net/http"
)

// DenialReason explains why a billable action was refused
type DenialReason string

const (
	// DenialInsufficientBalance: the online credit balance cannot cover the action
	DenialInsufficientBalance DenialReason = "INSUFFICIENT_BALANCE"
	// DenialOfflineLimit: the offline quota is exhausted
	DenialOfflineLimit DenialReason = "OFFLINE_LIMIT"
	// DenialDebtBlocked: a previous deferred settlement failed
	DenialDebtBlocked DenialReason = "DEBT_BLOCKED"
)

// String returns the string representation of DenialReason
func (r DenialReason) String() string {
	return string(r)
}

// Remediation returns what the user must do to lift the denial
func (r DenialReason) Remediation() string {
	switch r {
	case DenialInsufficientBalance:
		return "Top up your online credit balance"
	case DenialOfflineLimit:
		return "Reconnect to the internet to settle offline documents"
	case DenialDebtBlocked:
		return "Offline documents could not be billed; top up your balance and reconnect to settle them"
	}
	return ""
}

// BillingDeniedError is returned when a billable action is refused.
// No state is mutated when it is returned.
type BillingDeniedError struct {
	Reason       DenialReason
	OfflineCount int
	Limit        int
	Message      string
}

// Error implements the error interface
func (e *BillingDeniedError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status for the denial reason
func (e *BillingDeniedError) HTTPStatusCode() int {
	switch e.Reason {
	case DenialInsufficientBalance:
		return http.StatusPaymentRequired
	case DenialOfflineLimit:
		return http.StatusTooManyRequests
	case DenialDebtBlocked:
		return http.StatusLocked
	}
	return http.StatusForbidden
}

// NewBillingDeniedError creates a BillingDeniedError
func NewBillingDeniedError(reason DenialReason, offlineCount, limit int) *BillingDeniedError {
	msg := "Action refused: " + reason.Remediation()
	switch reason {
	case DenialInsufficientBalance:
		msg = "Insufficient credit balance. " + reason.Remediation()
	case DenialOfflineLimit:
		msg = "Offline document limit reached. " + reason.Remediation()
	case DenialDebtBlocked:
		msg = "Account blocked by unpaid offline usage. " + reason.Remediation()
	}
	return &BillingDeniedError{
		Reason:       reason,
		OfflineCount: offlineCount,
		Limit:        limit,
		Message:      msg,
	}
}

// IsBillingDenied reports whether err is a BillingDeniedError and returns it
func IsBillingDenied(err error) (*BillingDeniedError, bool) {
	var denied *BillingDeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}

// ErrInsufficientCredits is returned by a CreditCharger when the remote
// balance cannot cover the charge. Any other charge error is a transport failure.
var ErrInsufficientCredits = errors.New("insufficient credits")
