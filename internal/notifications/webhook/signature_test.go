package webhook

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_SignAndVerify(t *testing.T) {
	signer := NewSigner("secret-1")
	payload := []byte(`{"alert_id":"alert_1"}`)

	header := signer.Sign(payload, channelNow)
	require.NotEmpty(t, header)
	assert.True(t, strings.HasPrefix(header, "t=1773478800,"), header)

	assert.True(t, signer.Verify(payload, header, channelNow, time.Minute))
}

func TestSigner_RejectsTamperedPayload(t *testing.T) {
	signer := NewSigner("secret-1")
	header := signer.Sign([]byte("original"), channelNow)

	assert.False(t, signer.Verify([]byte("tampered"), header, channelNow, time.Minute))
}

func TestSigner_RejectsWrongSecret(t *testing.T) {
	payload := []byte("payload")
	header := NewSigner("secret-1").Sign(payload, channelNow)

	assert.False(t, NewSigner("secret-2").Verify(payload, header, channelNow, time.Minute))
}

func TestSigner_TimestampTolerance(t *testing.T) {
	signer := NewSigner("secret-1")
	payload := []byte("payload")
	header := signer.Sign(payload, channelNow)

	later := channelNow.Add(10 * time.Minute)
	assert.False(t, signer.Verify(payload, header, later, time.Minute),
		"stale signature rejected within tolerance window")
	assert.True(t, signer.Verify(payload, header, later, 0),
		"zero tolerance skips the freshness check")
}

func TestSigner_EmptySecretDisablesSigning(t *testing.T) {
	signer := NewSigner("")
	assert.Empty(t, signer.Sign([]byte("payload"), channelNow))
	assert.False(t, signer.Verify([]byte("payload"), "t=1,v1=abc", channelNow, 0))
}

func TestSigner_MalformedHeader(t *testing.T) {
	signer := NewSigner("secret-1")
	assert.False(t, signer.Verify([]byte("payload"), "not-a-header", channelNow, 0))
	assert.False(t, signer.Verify([]byte("payload"), "t=123", channelNow, 0))
}
