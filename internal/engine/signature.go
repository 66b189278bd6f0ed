package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Delivery headers set by the provider's dispatcher (Svix).
const (
	HeaderDeliveryID = "svix-id"
	HeaderTimestamp  = "svix-timestamp"
	HeaderSignature  = "svix-signature"

	secretPrefix     = "whsec_"
	signatureVersion = "v1"
)

// DefaultTimestampTolerance bounds clock skew between provider and receiver.
const DefaultTimestampTolerance = 5 * time.Minute

var (
	ErrInvalidSecret       = errors.New("invalid webhook secret")
	ErrMissingHeaders      = errors.New("missing webhook signature headers")
	ErrInvalidTimestamp    = errors.New("invalid webhook timestamp")
	ErrTimestampOutOfRange = errors.New("webhook timestamp outside tolerance")
	ErrNoMatchingSignature = errors.New("no matching webhook signature")
)

// Verifier checks the HMAC-SHA256 signature the provider attaches to each delivery.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes a "whsec_" secret. A non-positive tolerance selects
// DefaultTimestampTolerance.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}
	if tolerance <= 0 {
		tolerance = DefaultTimestampTolerance
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

func decodeSecret(secret string) ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix)
	if raw == "" {
		return nil, ErrInvalidSecret
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// Verify returns the delivery id when the headers carry a valid signature for body.
func (v *Verifier) Verify(headers http.Header, body []byte) (string, error) {
	id := headers.Get(HeaderDeliveryID)
	tsHeader := headers.Get(HeaderTimestamp)
	sigHeader := headers.Get(HeaderSignature)
	if id == "" || tsHeader == "" || sigHeader == "" {
		return "", ErrMissingHeaders
	}

	unix, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return "", ErrInvalidTimestamp
	}
	ts := time.Unix(unix, 0)

	now := v.now()
	if ts.Before(now.Add(-v.tolerance)) || ts.After(now.Add(v.tolerance)) {
		return "", ErrTimestampOutOfRange
	}

	expected := computeSignature(v.key, id, unix, body)
	for _, candidate := range strings.Fields(sigHeader) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != signatureVersion {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return id, nil
		}
	}
	return "", ErrNoMatchingSignature
}

// Sign builds the headers a provider would send for body.
func Sign(secret, id string, ts time.Time, body []byte) (http.Header, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}

	unix := ts.Unix()
	h := http.Header{}
	h.Set(HeaderDeliveryID, id)
	h.Set(HeaderTimestamp, strconv.FormatInt(unix, 10))
	h.Set(HeaderSignature, signatureVersion+","+computeSignature(key, id, unix, body))
	return h, nil
}

// computeSignature signs "id.timestamp.body" with HMAC-SHA256.
func computeSignature(key []byte, id string, unix int64, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(strconv.FormatInt(unix, 10)))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
