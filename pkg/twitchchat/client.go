package twitchchat

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/killallgit/chatcast/pkg/chaterrors"
	"github.com/killallgit/chatcast/pkg/eventstream"
	"github.com/killallgit/chatcast/pkg/logger"
)

const defaultAddr = "irc.chat.twitch.tv:6697"

// Client is a single-channel Twitch IRC connection.
type Client struct {
	addr     string
	identity Identity
	channel  string
	log      *logger.ComponentLogger
}

func NewClient(identity Identity, channel string) *Client {
	return &Client{
		addr:     defaultAddr,
		identity: identity,
		channel:  strings.ToLower(strings.TrimPrefix(channel, "#")),
		log:      logger.WithComponent("twitchchat"),
	}
}

// Run connects, joins the configured channel, and forwards every
// recognized event to handler until ctx is cancelled or the connection
// drops. Unrecognized or malformed lines are skipped rather than
// treated as errors, matching the read loop's tolerant parsing policy.
func (c *Client) Run(ctx context.Context, handler eventstream.Handler) error {
	dialer := &tls.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		err := chaterrors.Wrap(chaterrors.KindGeneralRequest, "dialing twitch irc", err)
		handler.OnError(err)
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	nick, pass := c.identity.Credentials()
	if pass != "" {
		if err := writeLine(conn, "PASS "+pass); err != nil {
			return c.fail(handler, err)
		}
	}
	if err := writeLine(conn, "NICK "+nick); err != nil {
		return c.fail(handler, err)
	}
	for _, cap := range []string{"twitch.tv/commands", "twitch.tv/membership", "twitch.tv/tags"} {
		if err := writeLine(conn, "CAP REQ :"+cap); err != nil {
			return c.fail(handler, err)
		}
	}
	if err := writeLine(conn, "JOIN #"+c.channel); err != nil {
		return c.fail(handler, err)
	}

	c.log.Info("joined channel", "channel", c.channel)

	reader := bufio.NewScanner(conn)
	reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for reader.Scan() {
		line := strings.TrimRight(reader.Text(), "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "PING") {
			_ = writeLine(conn, "PONG"+strings.TrimPrefix(line, "PING"))
			continue
		}

		event := c.parseLine(line)
		if event == nil {
			continue
		}
		if err := handler.OnEvent(*event); err != nil {
			handler.OnError(err)
			return err
		}
	}

	if err := reader.Err(); err != nil {
		return c.fail(handler, chaterrors.Wrap(chaterrors.KindGeneralRequest, "reading twitch irc connection", err))
	}
	return handler.OnComplete()
}

func (c *Client) fail(handler eventstream.Handler, err error) error {
	handler.OnError(err)
	return err
}

func writeLine(conn net.Conn, line string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_, err := fmt.Fprintf(conn, "%s\r\n", line)
	return err
}

// parseLine parses one raw IRC line, returning nil for anything this
// client does not act on (server notices, capability ACKs, and so on).
func (c *Client) parseLine(line string) *ChatEvent {
	rest := line
	tags := map[string]string{}
	if strings.HasPrefix(rest, "@") {
		tagPart, remainder, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil
		}
		tags = parseTags(tagPart)
		rest = remainder
	}

	prefix := ""
	if strings.HasPrefix(rest, ":") {
		p, remainder, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil
		}
		prefix = p
		rest = remainder
	}

	command, params, _ := strings.Cut(rest, " ")

	switch command {
	case "PRIVMSG":
		channel, body, ok := strings.Cut(params, " :")
		if !ok {
			return nil
		}
		_ = channel
		login, _, _ := strings.Cut(prefix, "!")
		return ToChatEvent(login, body, tags)
	case "353":
		_, names, ok := strings.Cut(params, ":")
		if !ok {
			return nil
		}
		return ParseNamesList(names)
	case "366":
		return EndOfMembers()
	default:
		return nil
	}
}
