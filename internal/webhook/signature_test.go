package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchbay/podsync/internal/domain"
	"github.com/merchbay/podsync/pkg/errors"
)

const (
	liveSecret = "whsec_live_abc123"
	testSecret = "whsec_test_def456"
)

func TestVerify_ValidSignature(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	header := Sign(payload, testSecret, time.Now())

	assert.NoError(t, Verify(payload, header, testSecret, DefaultTolerance))
}

func TestVerify_TamperedBody(t *testing.T) {
	payload := []byte(`{"amount":100}`)
	header := Sign(payload, testSecret, time.Now())

	err := Verify([]byte(`{"amount":999}`), header, testSecret, DefaultTolerance)
	require.Error(t, err)
	_, ok := err.(*errors.SignatureError)
	assert.True(t, ok)
}

func TestVerify_WrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, time.Now())

	assert.Error(t, Verify(payload, header, liveSecret, DefaultTolerance))
}

func TestVerify_StaleTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, time.Now().Add(-10*time.Minute))

	err := Verify(payload, header, testSecret, DefaultTolerance)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tolerance")
}

func TestVerify_FutureTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, time.Now().Add(10*time.Minute))

	assert.Error(t, Verify(payload, header, testSecret, DefaultTolerance))
}

func TestVerify_ZeroToleranceDisablesCheck(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, time.Now().Add(-24*time.Hour))

	assert.NoError(t, Verify(payload, header, testSecret, 0))
}

func TestParseHeader(t *testing.T) {
	payload := []byte(`{}`)
	value := Sign(payload, testSecret, time.Unix(1700000000, 0))

	header, err := ParseHeader(value)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), header.Timestamp.Unix())
	require.Len(t, header.Signatures, 1)
}

func TestParseHeader_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":               "",
		"no timestamp":        "v1=abcdef",
		"malformed timestamp": "t=notanumber,v1=abcdef",
		"no v1 signature":     "t=1700000000",
		"undecodable v1 only": "t=1700000000,v1=zzzz",
	}

	for name, value := range cases {
		_, err := ParseHeader(value)
		assert.Error(t, err, name)
	}
}

func TestParseHeader_IgnoresUnknownSchemes(t *testing.T) {
	value := Sign([]byte(`{}`), testSecret, time.Now()) + ",v0=deadbeef"

	header, err := ParseHeader(value)
	require.NoError(t, err)
	assert.Len(t, header.Signatures, 1)
}

func TestResolveEnvironment_PicksMatchingSecret(t *testing.T) {
	payload := []byte(`{"id":"cs_123"}`)

	env, err := ResolveEnvironment(payload, Sign(payload, liveSecret, time.Now()), liveSecret, testSecret, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, domain.EnvironmentLive, env)

	env, err = ResolveEnvironment(payload, Sign(payload, testSecret, time.Now()), liveSecret, testSecret, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, domain.EnvironmentTest, env)
}

func TestResolveEnvironment_RejectsUnknownSigner(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, "whsec_somebody_else", time.Now())

	_, err := ResolveEnvironment(payload, header, liveSecret, testSecret, DefaultTolerance)
	assert.Error(t, err)
}

func TestResolveEnvironment_NoSecretsConfigured(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, time.Now())

	_, err := ResolveEnvironment(payload, header, "", "", DefaultTolerance)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured")
}
