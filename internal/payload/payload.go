// Package payload implements the out-of-band pairing payload carried inside
// the QR code. The payload contains only the token value; issuer identity and
// expiry are re-read from the store at redemption time and are never trusted
// from the scanned text.
package payload

import (
	"errors"
	"strings"
)

const Prefix = "PAIR:"

var ErrInvalidFormat = errors.New("payload: invalid pairing payload")

// Encode produces the textual QR payload for a token value.
func Encode(token string) string {
	return Prefix + token
}

// Parse extracts the token value from a scanned payload. Anything that is not
// exactly the "PAIR:<token>" form is rejected; extra fields an attacker might
// embed have nowhere to go.
func Parse(raw string) (string, error) {
	if !strings.HasPrefix(raw, Prefix) {
		return "", ErrInvalidFormat
	}
	token := raw[len(Prefix):]
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", ErrInvalidFormat
	}
	return token, nil
}
