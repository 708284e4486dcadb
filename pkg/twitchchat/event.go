package twitchchat

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// utf8Slice returns the substring of s spanning code points [start, end]
// inclusive, mirroring Twitch's emote ranges which are indexed by code
// point rather than by byte. Byte-slicing s directly would misalign
// every range past the first multi-byte rune.
func utf8Slice(s string, start, end int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if end >= len(runes) {
		end = len(runes) - 1
	}
	if start > end || start >= len(runes) {
		return ""
	}
	return string(runes[start : end+1])
}

// UserRole classifies a chatter's standing in the channel. Precedence
// runs user-type (Admin/GlobalModerator/Staff) over the mod tag, over a
// broadcaster badge, over the Normal default; a moderator wearing a
// broadcaster badge is still just Moderator unless user-type says
// otherwise.
type UserRole int

const (
	RoleNormal UserRole = iota
	RoleBroadcaster
	RoleModerator
	RoleGlobalModerator
	RoleAdmin
	RoleStaff
)

// User identifies the sender of a chat event.
type User struct {
	ID               uint64
	Login            string
	DisplayName      string
	Color            uint32 // 24-bit RGB, zero when the chatter has none set
	SubMonths        int    // 0 when not a subscriber
	Role             UserRole
	ReturningChatter bool
}

// MessageSegmentKind discriminates a MessageSegment.
type MessageSegmentKind int

const (
	SegmentText MessageSegmentKind = iota
	SegmentEmote
)

// MessageSegment is one run of a chat message body: either literal text
// or a single emote reference, in the order they appeared in the
// original message.
type MessageSegment struct {
	Kind    MessageSegmentKind
	Text    string
	EmoteID string
}

func (s MessageSegment) String() string {
	return s.Text
}

type MessageEvent struct {
	ID           uuid.UUID
	User         User
	Segments     []MessageSegment
	ReplyToID    *uuid.UUID
	SentAt       time.Time
	IsAction     bool
	EmoteOnly    bool
	FirstMessage bool
	BitsAmount   int
}

type MemberChunkEvent struct {
	Members []string
}

// ChatEventKind discriminates ChatEvent's variant.
type ChatEventKind int

const (
	EventMessage ChatEventKind = iota
	EventBits
	EventMemberChunk
	EventEndOfMembers
)

// ChatEvent is a single parsed IRC line of interest. Unrecognized or
// malformed lines never produce a ChatEvent; the client skips them.
type ChatEvent struct {
	Kind        ChatEventKind
	Message     *MessageEvent
	MemberChunk *MemberChunkEvent
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	if raw == "" {
		return tags
	}
	for _, pair := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			tags[k] = ""
			continue
		}
		tags[k] = unescapeTagValue(v)
	}
	return tags
}

func unescapeTagValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			i++
			switch v[i] {
			case 's':
				b.WriteByte(' ')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case ':':
				b.WriteByte(';')
			default:
				b.WriteByte(v[i])
			}
			continue
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

// badgeMap turns a "broadcaster/1,subscriber/16" style tag value into a
// lookup from badge name to its trailing version/count string.
func badgeMap(raw string) map[string]string {
	badges := make(map[string]string)
	if raw == "" {
		return badges
	}
	for _, item := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(item, "/")
		if !ok {
			continue
		}
		badges[k] = v
	}
	return badges
}

func roleFromTags(userType string, badges map[string]string, mod string) UserRole {
	switch userType {
	case "admin":
		return RoleAdmin
	case "global_mod":
		return RoleGlobalModerator
	case "staff":
		return RoleStaff
	}
	if mod == "1" {
		return RoleModerator
	}
	if _, ok := badges["broadcaster"]; ok {
		return RoleBroadcaster
	}
	return RoleNormal
}

// parseColor strips the leading '#' IRC tags wrap display-color in and
// parses the remaining hex digits as a 24-bit RGB value.
func parseColor(raw string) uint32 {
	raw = strings.TrimPrefix(raw, "#")
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// segmentMessage splits body into text/emote segments using the
// "emotes" tag's code-point ranges, which arrive as
// "id:start-end,start-end/id2:start-end".
func segmentMessage(body, emotesTag string) []MessageSegment {
	type emoteRange struct {
		id         string
		start, end int
	}
	var ranges []emoteRange
	if emotesTag != "" {
		for _, group := range strings.Split(emotesTag, "/") {
			id, spans, ok := strings.Cut(group, ":")
			if !ok {
				continue
			}
			for _, span := range strings.Split(spans, ",") {
				lo, hi, ok := strings.Cut(span, "-")
				if !ok {
					continue
				}
				start, err1 := strconv.Atoi(lo)
				end, err2 := strconv.Atoi(hi)
				if err1 != nil || err2 != nil {
					continue
				}
				ranges = append(ranges, emoteRange{id, start, end})
			}
		}
	}
	if len(ranges) == 0 {
		return []MessageSegment{{Kind: SegmentText, Text: body}}
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })

	runes := []rune(body)
	var segments []MessageSegment
	cursor := 0
	for _, r := range ranges {
		if r.start > cursor {
			segments = append(segments, MessageSegment{Kind: SegmentText, Text: string(runes[cursor:r.start])})
		}
		segments = append(segments, MessageSegment{Kind: SegmentEmote, EmoteID: r.id, Text: utf8Slice(body, r.start, r.end)})
		cursor = r.end + 1
	}
	if cursor < len(runes) {
		segments = append(segments, MessageSegment{Kind: SegmentText, Text: string(runes[cursor:])})
	}
	return segments
}

// ToChatEvent converts one already-tag-split PRIVMSG line into a
// ChatEvent. login is the sender's login name parsed from the prefix,
// body is the trailing parameter, tags are the raw @-tag values. A
// message whose user-id, id, or (when present) reply-parent-msg-id tag
// fails to parse is dropped silently, matching the IRC adapter's
// tolerant-parsing policy: a malformed line never produces an event.
func ToChatEvent(login, body string, tags map[string]string) *ChatEvent {
	userID, err := strconv.ParseUint(tags["user-id"], 10, 64)
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(tags["id"])
	if err != nil {
		return nil
	}

	badges := badgeMap(tags["badges"])
	badgeInfo := badgeMap(tags["badge-info"])

	subMonths := 0
	if n, err := strconv.Atoi(badgeInfo["subscriber"]); err == nil {
		subMonths = n
	}

	displayName := tags["display-name"]
	if displayName == "" {
		displayName = login
	}

	user := User{
		ID:               userID,
		Login:            login,
		DisplayName:      displayName,
		Color:            parseColor(tags["color"]),
		SubMonths:        subMonths,
		Role:             roleFromTags(tags["user-type"], badges, tags["mod"]),
		ReturningChatter: tags["returning-chatter"] == "1",
	}

	sentAt := time.Now()
	if tsMs, err := strconv.ParseInt(tags["tmi-sent-ts"], 10, 64); err == nil {
		sentAt = time.Unix(tsMs/1000, 0)
	}

	isAction := false
	trimmed := body
	if strings.HasPrefix(body, "\x01ACTION ") && strings.HasSuffix(body, "\x01") {
		isAction = true
		trimmed = strings.TrimSuffix(strings.TrimPrefix(body, "\x01ACTION "), "\x01")
	}

	msg := &MessageEvent{
		ID:           id,
		User:         user,
		Segments:     segmentMessage(trimmed, tags["emotes"]),
		SentAt:       sentAt,
		IsAction:     isAction,
		EmoteOnly:    tags["emote-only"] == "1",
		FirstMessage: tags["first-msg"] == "1",
	}
	if replyStr, ok := tags["reply-parent-msg-id"]; ok && replyStr != "" {
		if replyID, err := uuid.Parse(replyStr); err == nil {
			msg.ReplyToID = &replyID
		}
	}

	if bitsStr, ok := tags["bits"]; ok && bitsStr != "" {
		if amount, err := strconv.Atoi(bitsStr); err == nil {
			msg.BitsAmount = amount
			return &ChatEvent{Kind: EventBits, Message: msg}
		}
	}

	return &ChatEvent{Kind: EventMessage, Message: msg}
}

// ParseNamesList turns a 353 (RPL_NAMREPLY) parameter list into a
// MemberChunk event.
func ParseNamesList(names string) *ChatEvent {
	members := strings.Fields(names)
	for i, m := range members {
		members[i] = strings.TrimLeft(m, "@+")
	}
	return &ChatEvent{Kind: EventMemberChunk, MemberChunk: &MemberChunkEvent{Members: members}}
}

// EndOfMembers is the event emitted on a 366 (RPL_ENDOFNAMES).
func EndOfMembers() *ChatEvent {
	return &ChatEvent{Kind: EventEndOfMembers}
}
