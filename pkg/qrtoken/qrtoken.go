// Package qrtoken encodes and decodes the short-lived attendance credential
// carried inside the QR image. The credential is plain structured data with no
// signature; the validity window is the only thing the mark flow checks.
package qrtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrMalformedPayload = errors.New("QR payload is not valid JSON")
	ErrMissingSubject   = errors.New("QR payload is missing a subject")
	ErrBadIssuedAt      = errors.New("QR payload has an invalid issuedAt timestamp")
	ErrBadExpiry        = errors.New("QR payload expiryMinutes must be a positive whole number")
)

type Credential struct {
	Subject       string    `json:"subject"`
	IssuedAt      time.Time `json:"issuedAt"`
	ExpiryMinutes int       `json:"expiryMinutes"`
}

// Mint creates a fresh credential for a subject. validityMinutes comes from
// server policy, not from the caller.
func Mint(subject string, now time.Time, validityMinutes int) Credential {
	return Credential{
		Subject:       subject,
		IssuedAt:      now,
		ExpiryMinutes: validityMinutes,
	}
}

// Expired reports whether the credential is past its validity window at t.
// Only the upper bound is checked: a credential issued in the future (clock
// skew between minting and checking hosts) is still considered valid.
func (c Credential) Expired(t time.Time) bool {
	elapsed := t.Sub(c.IssuedAt)
	return elapsed > time.Duration(c.ExpiryMinutes)*time.Minute
}

// ExpiresAt returns the instant the credential stops being accepted.
func (c Credential) ExpiresAt() time.Time {
	return c.IssuedAt.Add(time.Duration(c.ExpiryMinutes) * time.Minute)
}

// rawCredential tolerates the two issuedAt encodings browser clients produce:
// an RFC 3339 string or epoch milliseconds.
type rawCredential struct {
	Subject       string          `json:"subject"`
	IssuedAt      json.RawMessage `json:"issuedAt"`
	ExpiryMinutes float64         `json:"expiryMinutes"`
}

// Decode parses and validates a raw QR payload. It fails when the payload is
// not well-formed JSON, the subject is empty or absent, issuedAt cannot be
// parsed, or expiryMinutes is not a positive whole number. Fractional minutes
// are rejected rather than truncated, because truncating 0.5 would collapse
// the validity window to zero.
func Decode(raw []byte) (Credential, error) {
	var rc rawCredential
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Credential{}, ErrMalformedPayload
	}

	if rc.Subject == "" {
		return Credential{}, ErrMissingSubject
	}

	if rc.ExpiryMinutes <= 0 || rc.ExpiryMinutes != math.Trunc(rc.ExpiryMinutes) {
		return Credential{}, ErrBadExpiry
	}

	issuedAt, err := parseIssuedAt(rc.IssuedAt)
	if err != nil {
		return Credential{}, ErrBadIssuedAt
	}

	return Credential{
		Subject:       rc.Subject,
		IssuedAt:      issuedAt,
		ExpiryMinutes: int(rc.ExpiryMinutes),
	}, nil
}

func parseIssuedAt(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, errors.New("issuedAt is absent")
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		t, err := time.Parse(time.RFC3339, asString)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	}

	var asMillis int64
	if err := json.Unmarshal(raw, &asMillis); err == nil {
		if asMillis <= 0 {
			return time.Time{}, errors.New("issuedAt epoch must be positive")
		}
		return time.UnixMilli(asMillis), nil
	}

	return time.Time{}, errors.New("issuedAt is neither a timestamp string nor epoch milliseconds")
}

// EncodePNG renders the credential as a scannable QR image and returns it as
// a base64 PNG data URL ready for an <img> tag.
func EncodePNG(c Credential) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal QR payload: %w", err)
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR image: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
