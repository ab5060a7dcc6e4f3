package registry

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

const qrPrefix = "EVENT:"

// ErrMalformedPayload is returned when a QR payload does not start with the
// EVENT: prefix or carries no event ID.
var ErrMalformedPayload = errors.New("registry: malformed qr payload")

// QRCodec signs and verifies event QR payloads. The signing key is derived
// once at construction from a process-wide root secret via HKDF, the same
// subkey-derivation idiom the teacher uses for its blockchain key material,
// generalized here to a payload-signing key instead of an address key.
type QRCodec struct {
	signingKey []byte
}

// NewQRCodec derives a 32-byte HMAC signing key from rootSecret.
func NewQRCodec(rootSecret []byte) (*QRCodec, error) {
	if len(rootSecret) == 0 {
		return nil, errors.New("registry: qr signing root secret is required")
	}
	key := make([]byte, sha256.Size)
	kdf := hkdf.New(sha256.New, rootSecret, nil, []byte("event-qr-payload-v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("registry: derive qr signing key: %w", err)
	}
	return &QRCodec{signingKey: key}, nil
}

// Encode emits the signed form of the QR payload for eventID as of now.
func (c *QRCodec) Encode(eventID string, now time.Time) string {
	ms := now.UnixMilli()
	return fmt.Sprintf("%s%s:TIMESTAMP:%d:HASH:%s", qrPrefix, eventID, ms, c.sign(eventID, ms))
}

func (c *QRCodec) sign(eventID string, ms int64) string {
	mac := hmac.New(sha256.New, c.signingKey)
	fmt.Fprintf(mac, "%s:%d", eventID, ms)
	return hex.EncodeToString(mac.Sum(nil))
}

// DecodePayload extracts the event ID from a payload in either the bare
// "EVENT:<id>" form or the signed "EVENT:<id>:TIMESTAMP:<ms>:HASH:<hex>"
// form, per the external QR payload format: the substring between the
// first two colons is the event ID regardless of what follows.
func DecodePayload(payload string) (string, error) {
	if !strings.HasPrefix(payload, qrPrefix) {
		return "", ErrMalformedPayload
	}
	rest := strings.TrimPrefix(payload, qrPrefix)
	eventID := rest
	if idx := strings.Index(rest, ":"); idx >= 0 {
		eventID = rest[:idx]
	}
	if eventID == "" {
		return "", ErrMalformedPayload
	}
	return eventID, nil
}

// Verify decodes payload and, for the signed form, checks the HASH field
// against the derived signing key. Bare payloads carry no signature and
// verify trivially, matching the decoder's permissive contract; check-in
// flows that require tamper evidence should reject the bare form
// themselves if their deployment always emits signed payloads.
func (c *QRCodec) Verify(payload string) (eventID string, ok bool) {
	eventID, err := DecodePayload(payload)
	if err != nil {
		return "", false
	}
	idx := strings.Index(payload, ":TIMESTAMP:")
	if idx < 0 {
		return eventID, true
	}
	rest := payload[idx+len(":TIMESTAMP:"):]
	fields := strings.SplitN(rest, ":HASH:", 2)
	if len(fields) != 2 {
		return "", false
	}
	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return "", false
	}
	expected := c.sign(eventID, ms)
	if !hmac.Equal([]byte(expected), []byte(fields[1])) {
		return "", false
	}
	return eventID, true
}
