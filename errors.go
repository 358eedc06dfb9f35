package payreq

import (
	"errors"
	"fmt"
)

// ProtocolError is a protocol-specific failure with a stable machine-readable
// code. Every failure is detected before any side effect and aborts the whole
// transition; nothing is retried automatically.
type ProtocolError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Stable error codes.
const (
	// State-conflict: transition attempted out of order.
	ErrCodeAlreadySettled = "already_settled"
	ErrCodeAlreadySwept   = "already_swept"
	ErrCodeNotSettled     = "not_settled"

	// Authorization.
	ErrCodeUnauthorizedReceiver = "unauthorized_receiver"

	// Validation.
	ErrCodeInvalidRange     = "invalid_range"
	ErrCodeAmountOutOfRange = "amount_out_of_range"

	// Proof failure.
	ErrCodeInvalidProof         = "invalid_proof"
	ErrCodeInvalidPaymentProof  = "invalid_payment_proof"
	ErrCodeInvalidReceiverProof = "invalid_receiver_proof"
	ErrCodeInvalidCommitment    = "invalid_commitment"

	// Host-side conditions surfaced through the same taxonomy.
	ErrCodeRequestExists       = "request_exists"
	ErrCodeRequestNotFound     = "request_not_found"
	ErrCodeInsufficientFunds   = "insufficient_funds"
	ErrCodeSchemeNotRegistered = "scheme_not_registered"
	ErrCodeOperationAborted    = "operation_aborted"
)

// NewProtocolError creates a new protocol error.
func NewProtocolError(code, message string, details map[string]interface{}) *ProtocolError {
	return &ProtocolError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// AsProtocolError unwraps err into a *ProtocolError if one is in its chain.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsCode reports whether err carries the given protocol error code.
func IsCode(err error, code string) bool {
	pe, ok := AsProtocolError(err)
	return ok && pe.Code == code
}
