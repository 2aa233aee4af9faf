package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer produces and verifies HMAC-SHA256 payload signatures. The signed
// content is "{unix_timestamp}.{payload}" and the header format is
// "t=<unix>,v1=<hex>".
type Signer struct {
	secret string
}

// NewSigner creates a Signer with the given secret. An empty secret disables
// signing; Sign then returns an empty header.
func NewSigner(secret string) *Signer {
	return &Signer{secret: secret}
}

// Sign generates the signature header value for a payload.
func (s *Signer) Sign(payload []byte, now time.Time) string {
	if s.secret == "" {
		return ""
	}
	timestamp := now.Unix()
	content := fmt.Sprintf("%d.%s", timestamp, string(payload))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, computeHMAC(content, s.secret))
}

// Verify checks a payload against a signature header. The timestamp in the
// header must be within tolerance of now to defeat replay; a zero tolerance
// skips the freshness check.
func (s *Signer) Verify(payload []byte, header string, now time.Time, tolerance time.Duration) bool {
	if s.secret == "" || header == "" {
		return false
	}

	timestamp, v1 := parseSignatureHeader(header)
	if timestamp == "" || v1 == "" {
		return false
	}

	if tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return false
		}
		age := now.Sub(time.Unix(ts, 0))
		if age < -tolerance || age > tolerance {
			return false
		}
	}

	content := fmt.Sprintf("%s.%s", timestamp, string(payload))
	expected := computeHMAC(content, s.secret)
	return hmac.Equal([]byte(v1), []byte(expected))
}

// parseSignatureHeader extracts the t and v1 components of a header.
func parseSignatureHeader(header string) (timestamp, v1 string) {
	for _, segment := range strings.Split(header, ",") {
		kv := strings.SplitN(segment, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.TrimSpace(kv[0]) {
		case "t":
			timestamp = strings.TrimSpace(kv[1])
		case "v1":
			v1 = strings.TrimSpace(kv[1])
		}
	}
	return timestamp, v1
}

// computeHMAC returns the HMAC-SHA256 of content as lowercase hex.
func computeHMAC(content, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
