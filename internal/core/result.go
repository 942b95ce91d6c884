package core

import "errors"

// DeliveryResult is the uniform outcome of one send attempt.
type DeliveryResult struct {
	// Success reports whether the transport accepted the message.
	Success bool

	// Message is the snapshot that was sent.
	Message *Message

	// Receipt is the transport acknowledgment; nil on failure.
	Receipt *Receipt

	// Err describes the failure; nil on success.
	Err error
}

// Info returns the receipt on success and the error on failure.
func (r *DeliveryResult) Info() any {
	if r.Success {
		return r.Receipt
	}
	return r.Err
}

// NewDeliveryResult normalizes a transport outcome into a DeliveryResult.
// Transport errors are wrapped in a DeliveryError.
func NewDeliveryResult(msg *Message, receipt *Receipt, err error) *DeliveryResult {
	if err != nil {
		var de *DeliveryError
		if !errors.As(err, &de) {
			err = &DeliveryError{Cause: err}
		}
		return &DeliveryResult{
			Success: false,
			Message: msg,
			Err:     err,
		}
	}
	return &DeliveryResult{
		Success: true,
		Message: msg,
		Receipt: receipt,
	}
}
