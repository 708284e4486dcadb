// Package twitchchat implements a minimal IRCv3 client for Twitch's chat
// servers: capability negotiation, PRIVMSG/membership parsing, and emote
// segmentation, the way the web package handles YouTube's live chat RPC.
package twitchchat

import "fmt"

// Identity is whatever credentials a connection authenticates with.
type Identity interface {
	// Credentials returns the IRC NICK and PASS values to send during
	// connection registration. PASS is empty for an anonymous identity.
	Credentials() (nick string, pass string)
}

// Anonymous connects as a read-only "justinfan" guest, Twitch's
// well-known convention for unauthenticated chat access.
type Anonymous struct{}

func (Anonymous) Credentials() (string, string) {
	return "justinfan24340", ""
}

// Authenticated connects with a real account and an OAuth chat token.
type Authenticated struct {
	Username string
	Token    string
}

func (a Authenticated) Credentials() (string, string) {
	return a.Username, fmt.Sprintf("oauth:%s", a.Token)
}
