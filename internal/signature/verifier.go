// Package signature verifies Razorpay checkout callback signatures.
//
// A callback carries an order id, a payment id and a hex HMAC-SHA256 digest of
// "order_id|payment_id" keyed with the merchant's key secret. Verification
// recomputes the digest and compares it in constant time.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when no signing secret is available.
	ErrNotConfigured = errors.New("signing secret not configured")
	// ErrMissingField is returned (wrapped with the field name) when a
	// required callback field is empty.
	ErrMissingField = errors.New("missing payment field")
)

// Field names as they appear in the gateway callback.
const (
	FieldOrderID   = "razorpay_order_id"
	FieldPaymentID = "razorpay_payment_id"
	FieldSignature = "razorpay_signature"
)

// Result is the outcome of a verification that ran to completion.
type Result int

const (
	Invalid Result = iota
	Valid
)

func (r Result) String() string {
	if r == Valid {
		return "valid"
	}
	return "invalid"
}

// Verifier checks callback signatures against a secret obtained from its
// SecretSource on every call.
type Verifier struct {
	source SecretSource
}

// NewVerifier creates a Verifier reading its key from src.
func NewVerifier(src SecretSource) *Verifier {
	return &Verifier{source: src}
}

// Verify checks signature for the given order and payment ids.
func (v *Verifier) Verify(orderID, paymentID, sig string) (Result, error) {
	var secret string
	if v.source != nil {
		secret = v.source.KeySecret()
	}
	return Verify(orderID, paymentID, sig, secret)
}

// Verify checks sig against the HMAC-SHA256 of "orderID|paymentID" keyed
// with secret. An empty secret yields ErrNotConfigured whatever the other
// inputs are; an empty field yields ErrMissingField before any digest is
// computed.
func Verify(orderID, paymentID, sig, secret string) (Result, error) {
	if secret == "" {
		return Invalid, ErrNotConfigured
	}
	if err := RequireFields(orderID, paymentID, sig); err != nil {
		return Invalid, err
	}

	expected := Sign(secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return Invalid, nil
	}
	return Valid, nil
}

// RequireFields reports the first empty required field, in the order the
// gateway documents them.
func RequireFields(orderID, paymentID, sig string) error {
	switch {
	case paymentID == "":
		return fmt.Errorf("%w: %s", ErrMissingField, FieldPaymentID)
	case orderID == "":
		return fmt.Errorf("%w: %s", ErrMissingField, FieldOrderID)
	case sig == "":
		return fmt.Errorf("%w: %s", ErrMissingField, FieldSignature)
	}
	return nil
}

// Sign returns the lowercase hex HMAC-SHA256 of "orderID|paymentID".
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
