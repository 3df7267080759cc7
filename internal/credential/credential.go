// Package credential implements the reversible encoding used to carry a
// username/password pair between the client, its credential store and the
// gateway's Basic authentication.
//
// The encoding is base64(username + ":" + password), the same value an HTTP
// Basic Authorization header carries. It is not a protection mechanism: anyone
// holding a Credential can recover the pair.
package credential

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Separator joins the username and password inside a Credential. It is
// reserved in usernames; passwords may contain it because decoding splits on
// the first occurrence.
const Separator = ":"

var (
	// ErrReservedSeparator is returned when a username contains Separator.
	ErrReservedSeparator = errors.New("credential: username must not contain \":\"")
	// ErrMalformed is returned when a Credential cannot be decoded into a pair.
	ErrMalformed = errors.New("credential: malformed credential")
)

// Credential is an opaque, atomic token derived from a username/password pair.
// The zero value means "no credential".
type Credential string

// Encode derives a Credential from the pair. Values are used as given; callers
// trim user input before encoding.
func Encode(username, password string) (Credential, error) {
	if strings.Contains(username, Separator) {
		return "", ErrReservedSeparator
	}
	raw := username + Separator + password
	return Credential(base64.StdEncoding.EncodeToString([]byte(raw))), nil
}

// Decode recovers the pair Encode was given.
func (c Credential) Decode() (username, password string, err error) {
	raw, err := base64.StdEncoding.DecodeString(string(c))
	if err != nil {
		return "", "", ErrMalformed
	}
	username, password, ok := strings.Cut(string(raw), Separator)
	if !ok {
		return "", "", ErrMalformed
	}
	return username, password, nil
}

// IsZero reports whether c holds no credential.
func (c Credential) IsZero() bool {
	return c == ""
}

// Authorization returns the value for an HTTP Authorization header.
func (c Credential) Authorization() string {
	return "Basic " + string(c)
}

// FromAuthorization extracts the Credential from a Basic Authorization header
// value. It returns false for any other scheme or an empty credential.
func FromAuthorization(header string) (Credential, bool) {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return Credential(value), true
}

// String hides the encoded pair so a Credential can be logged by accident
// without leaking it.
func (c Credential) String() string {
	if c.IsZero() {
		return "<none>"
	}
	return "<redacted>"
}
