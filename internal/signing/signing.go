// Package signing implements a minimal HMAC helper for generating and verifying
// signed export download links. HMAC is easy in Go thanks to the standard
// library crypto packages.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature for an export id and expiry.
func (s *Signer) Sign(exportID string, expiresUnix int64) string {
	// hmac.New accepts a hash constructor (sha256.New) plus the secret key.
	mac := hmac.New(sha256.New, s.secret)
	// fmt.Sprintf builds the canonical payload string, ensuring consistent
	// ordering of values.
	payload := fmt.Sprintf("%s:%d", exportID, expiresUnix)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Link returns the expiry and signature for a link valid for ttl.
func (s *Signer) Link(exportID string, ttl time.Duration) (expires int64, signature string) {
	expires = s.now().Add(ttl).Unix()
	return expires, s.Sign(exportID, expires)
}

// Validate compares the provided signature with the expected one and rejects
// links whose expiry has passed.
func (s *Signer) Validate(exportID, expires, signature string) bool {
	// strconv.ParseInt converts the expires query parameter back to an integer.
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if s.now().Unix() > exp {
		return false
	}
	expected := s.Sign(exportID, exp)
	// hmac.Equal performs constant-time comparison to avoid timing attacks.
	return hmac.Equal([]byte(expected), []byte(signature))
}
