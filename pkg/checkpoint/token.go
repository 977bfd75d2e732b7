// Package checkpoint issues and verifies the short-lived location tokens scanned on arrival.
package checkpoint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned for tokens that cannot be decoded.
	ErrMalformed = errors.New("malformed checkpoint token")
	// ErrSignature is returned when the token was not issued with our secret.
	ErrSignature = errors.New("invalid checkpoint token signature")
	// ErrOutsideWindow is returned when the token minute is outside the tolerance.
	ErrOutsideWindow = errors.New("checkpoint token outside time window")
)

// Signer creates and validates minute-granularity location tokens.
type Signer struct {
	secret    []byte
	tolerance int64
}

// NewSigner constructs a signer. Tolerance is expressed in whole minutes.
func NewSigner(secret string, toleranceMinutes int) *Signer {
	if toleranceMinutes < 0 {
		toleranceMinutes = 0
	}
	return &Signer{secret: []byte(secret), tolerance: int64(toleranceMinutes)}
}

// Claims is the decoded content of a token.
type Claims struct {
	LocationID string
	Minute     int64
}

// Time returns the minute encoded in the token.
func (c Claims) Time() time.Time {
	return time.Unix(c.Minute*60, 0).UTC()
}

// Issue returns the token for locationID at the minute containing at.
func (s *Signer) Issue(locationID string, at time.Time) (string, error) {
	if locationID == "" {
		return "", fmt.Errorf("locationID required")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(locationID))
	minute := strconv.FormatInt(minuteOf(at), 10)
	return strings.Join([]string{encoded, minute, s.sign(encoded, minute)}, "."), nil
}

// Parse checks the signature and returns the claims without applying the time window.
func (s *Signer) Parse(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformed
	}
	rawLocation, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(rawLocation) == 0 {
		return Claims{}, ErrMalformed
	}
	minute, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	expected := s.sign(parts[0], parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return Claims{}, ErrSignature
	}
	return Claims{LocationID: string(rawLocation), Minute: minute}, nil
}

// Verify parses the token and accepts it only when its minute is within the tolerance of now's minute.
func (s *Signer) Verify(token string, now time.Time) (Claims, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return Claims{}, err
	}
	delta := minuteOf(now) - claims.Minute
	if delta < 0 {
		delta = -delta
	}
	if delta > s.tolerance {
		return claims, ErrOutsideWindow
	}
	return claims, nil
}

func (s *Signer) sign(location, minute string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(location + "|" + minute))
	return hex.EncodeToString(mac.Sum(nil))
}

func minuteOf(t time.Time) int64 {
	return t.Unix() / 60
}
