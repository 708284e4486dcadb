package twitchchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymousCredentials(t *testing.T) {
	nick, pass := Anonymous{}.Credentials()
	assert.Equal(t, "justinfan24340", nick)
	assert.Equal(t, "", pass)
}

func TestAuthenticatedCredentials(t *testing.T) {
	nick, pass := Authenticated{Username: "someuser", Token: "abc123"}.Credentials()
	assert.Equal(t, "someuser", nick)
	assert.Equal(t, "oauth:abc123", pass)
}
