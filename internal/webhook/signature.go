package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

// DefaultTolerance bounds how stale a signed timestamp may be before the
// event is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// SignatureHeader is the header carrying "t=<unix>,v1=<hex-hmac>".
const SignatureHeader = "Stripe-Signature"

// Header is a parsed signature header.
type Header struct {
	Timestamp  time.Time
	Signatures [][]byte
}

// ParseHeader splits the signature header into its timestamp and v1
// signatures. Unknown schemes are ignored, not fatal.
func ParseHeader(value string) (*Header, error) {
	if value == "" {
		return nil, &errors.SignatureError{Reason: "missing signature header"}
	}

	header := &Header{}
	for _, part := range strings.Split(value, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			unix, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return nil, &errors.SignatureError{Reason: "malformed timestamp"}
			}
			header.Timestamp = time.Unix(unix, 0)
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			header.Signatures = append(header.Signatures, sig)
		}
	}

	if header.Timestamp.IsZero() {
		return nil, &errors.SignatureError{Reason: "missing timestamp"}
	}
	if len(header.Signatures) == 0 {
		return nil, &errors.SignatureError{Reason: "no v1 signature"}
	}
	return header, nil
}

// Verify checks the HMAC-SHA256 of "{timestamp}.{raw_body}" against the
// header's signatures in constant time. Only the raw, unparsed request
// body may be passed here; parsing happens after verification succeeds.
func Verify(payload []byte, headerValue, secret string, tolerance time.Duration) error {
	header, err := ParseHeader(headerValue)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := time.Since(header.Timestamp)
		if age > tolerance || age < -tolerance {
			return &errors.SignatureError{Reason: "timestamp outside tolerance"}
		}
	}

	expected := computeSignature(header.Timestamp, payload, secret)
	for _, sig := range header.Signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return &errors.SignatureError{Reason: "no matching v1 signature"}
}

// ResolveEnvironment verifies the payload against the live secret first,
// then the test secret, and returns the environment whose secret matched.
// The environment is derived only from this trusted signal, never from a
// client-supplied mode flag.
func ResolveEnvironment(payload []byte, headerValue, liveSecret, testSecret string, tolerance time.Duration) (domain.Environment, error) {
	var lastErr error

	if liveSecret != "" {
		if err := Verify(payload, headerValue, liveSecret, tolerance); err == nil {
			return domain.EnvironmentLive, nil
		} else {
			lastErr = err
		}
	}
	if testSecret != "" {
		if err := Verify(payload, headerValue, testSecret, tolerance); err == nil {
			return domain.EnvironmentTest, nil
		} else {
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = &errors.SignatureError{Reason: "no webhook secrets configured"}
	}
	return "", lastErr
}

func computeSignature(ts time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return mac.Sum(nil)
}

// Sign produces a valid header value for a payload. Used by tests and
// local tooling to exercise the endpoint.
func Sign(payload []byte, secret string, ts time.Time) string {
	sig := computeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}
