package credential

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"simple", "bob", "pw1"},
		{"password with separator", "alice", "a:b:c"},
		{"unicode", "jörg", "пароль"},
		{"spaces inside", "first last", "correct horse battery staple"},
		{"empty password", "u", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := Encode(tt.username, tt.password)
			require.NoError(t, err)

			user, pass, err := cred.Decode()
			require.NoError(t, err)
			assert.Equal(t, tt.username, user)
			assert.Equal(t, tt.password, pass)
		})
	}
}

func TestEncode_MatchesBasicAuth(t *testing.T) {
	cred, err := Encode("bob", "pw1")
	require.NoError(t, err)
	assert.Equal(t, Credential(base64.StdEncoding.EncodeToString([]byte("bob:pw1"))), cred)
	assert.Equal(t, "Basic Ym9iOnB3MQ==", cred.Authorization())
}

func TestEncode_SeparatorReservedInUsername(t *testing.T) {
	_, err := Encode("bo:b", "pw1")
	assert.ErrorIs(t, err, ErrReservedSeparator)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
	}{
		{"not base64", Credential("%%%")},
		{"no separator", Credential(base64.StdEncoding.EncodeToString([]byte("nocolon")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.cred.Decode()
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFromAuthorization(t *testing.T) {
	tests := []struct {
		header string
		want   Credential
		ok     bool
	}{
		{"Basic Ym9iOnB3MQ==", "Ym9iOnB3MQ==", true},
		{"basic Ym9iOnB3MQ==", "Ym9iOnB3MQ==", true},
		{"Bearer abc", "", false},
		{"Basic ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FromAuthorization(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestString_Redacts(t *testing.T) {
	cred, err := Encode("bob", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "<redacted>", cred.String())
	assert.Equal(t, "<none>", Credential("").String())
	assert.True(t, Credential("").IsZero())
}
