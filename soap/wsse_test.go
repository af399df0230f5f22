package soap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsernameTokenText(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	root, err := UsernameToken("alice", "pw", UsernameTokenOptions{
		PasswordType: PasswordText,
		Now:          created,
	})
	require.NoError(t, err)

	securityVal, ok := root.Get("wsse:Security")
	require.True(t, ok)
	security := securityVal.(*Element)

	tokenVal, _ := security.Get("wsse:UsernameToken")
	token := tokenVal.(*Element)

	userVal, _ := token.Get("wsse:Username")
	user, _ := TextOf(userVal)
	assert.Equal(t, "alice", user)

	pwVal, _ := token.Get("wsse:Password")
	pwElem := pwVal.(*Element)
	pwText, _ := TextOf(pwVal)
	assert.Equal(t, "pw", pwText)
	typ, _ := pwElem.Attr("Type")
	assert.Equal(t, PasswordTypeText, typ)

	err = ValidateUsernameToken(security, "alice", "pw")
	assert.NoError(t, err)
}

// TestUsernameTokenDigest uses the exact fixture values given for the
// digest algorithm: Created="2024-01-01T00:00:00Z", a 16-byte nonce
// decoded from base64("abcdefghijklmnop"), password "pw".
func TestUsernameTokenDigest(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	nonce := []byte("abcdefghijklmnop")

	root, err := UsernameToken("bob", "pw", UsernameTokenOptions{
		PasswordType: PasswordDigest,
		Now:          created,
		Nonce:        nonce,
	})
	require.NoError(t, err)

	securityVal, _ := root.Get("wsse:Security")
	security := securityVal.(*Element)
	tokenVal, _ := security.Get("wsse:UsernameToken")
	token := tokenVal.(*Element)

	pwVal, _ := token.Get("wsse:Password")
	pwText, _ := TextOf(pwVal)

	want := digestPassword(nonce, "2024-01-01T00:00:00Z", "pw")
	assert.Equal(t, want, pwText)

	err = ValidateUsernameToken(security, "bob", "pw")
	assert.NoError(t, err)
}

func TestValidateUsernameTokenRejectsWrongPassword(t *testing.T) {
	root, err := UsernameToken("alice", "pw", UsernameTokenOptions{})
	require.NoError(t, err)
	securityVal, _ := root.Get("wsse:Security")
	security := securityVal.(*Element)

	err = ValidateUsernameToken(security, "alice", "wrong")
	require.Error(t, err)
	var secErr *SecurityError
	require.ErrorAs(t, err, &secErr)
	assert.Equal(t, SecInvalidCredentials, secErr.Kind)
}

func TestValidateUsernameTokenMissingHeader(t *testing.T) {
	err := ValidateUsernameToken(nil, "alice", "pw")
	require.Error(t, err)
	var secErr *SecurityError
	require.ErrorAs(t, err, &secErr)
	assert.Equal(t, SecMissingSecurityHeader, secErr.Kind)
}

func TestTimestampValidation(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	root := Timestamp(TimestampOptions{Now: now, TTL: 5 * time.Minute})

	tsVal, ok := root.Get("wsu:Timestamp")
	require.True(t, ok)
	ts := tsVal.(*Element)

	security := NewElement()
	security.SetOnce("wsu:Timestamp", ts)

	assert.NoError(t, ValidateTimestamp(security, now.Add(1*time.Minute)))
	assert.Error(t, ValidateTimestamp(security, now.Add(10*time.Minute)))
}

func TestTimestampMissing(t *testing.T) {
	err := ValidateTimestamp(nil, time.Now())
	require.Error(t, err)
	var secErr *SecurityError
	require.ErrorAs(t, err, &secErr)
	assert.Equal(t, SecMissingTimestamp, secErr.Kind)
}

func TestUsernameTokenWithTimestampHasUniqueIds(t *testing.T) {
	root, err := UsernameTokenWithTimestamp("alice", "pw", UsernameTokenOptions{}, TimestampOptions{})
	require.NoError(t, err)

	securityVal, _ := root.Get("wsse:Security")
	security := securityVal.(*Element)

	tokenVal, _ := security.Get("wsse:UsernameToken")
	token := tokenVal.(*Element)
	tokenID, ok := token.Attr("wsu:Id")
	require.True(t, ok)
	assert.Contains(t, tokenID, "UsernameToken-")

	tsVal, _ := security.Get("wsu:Timestamp")
	ts := tsVal.(*Element)
	tsID, ok := ts.Attr("wsu:Id")
	require.True(t, ok)
	assert.Contains(t, tsID, "Timestamp-")

	assert.NotEqual(t, tokenID, tsID)
}
