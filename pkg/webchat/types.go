package webchat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MicroTimestamp decodes a microseconds-since-epoch value (sent by the
// server as a numeric string) into a wall-clock time without losing
// sub-millisecond precision, splitting the value into seconds and
// nanoseconds before handing it to time.Unix.
type MicroTimestamp struct {
	time.Time
}

func (m *MicroTimestamp) UnmarshalJSON(data []byte) error {
	n, err := parseCoercedInt64(data)
	if err != nil {
		return fmt.Errorf("timestampUsec: %w", err)
	}
	seconds := n / 1_000_000
	micros := n % 1_000_000
	if micros < 0 {
		micros += 1_000_000
		seconds--
	}
	m.Time = time.Unix(seconds, micros*1000).UTC()
	return nil
}

// parseCoercedInt64 accepts either a JSON number or a JSON string
// containing a number, matching the server's habit of sending some
// integer fields as strings.
func parseCoercedInt64(data []byte) (int64, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return strconv.ParseInt(s, 10, 64)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		return n, nil
	}
	return 0, fmt.Errorf("value %q is neither a numeric string nor a number", string(data))
}

// CoercedInt64 is an int64 that accepts both native JSON numbers and
// numeric strings, matching fields like videoOffsetTimeMsec.
type CoercedInt64 int64

func (c *CoercedInt64) UnmarshalJSON(data []byte) error {
	n, err := parseCoercedInt64(data)
	if err != nil {
		return err
	}
	*c = CoercedInt64(n)
	return nil
}

// Thumbnail is one resolution of an image asset.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

type AccessibilityData struct {
	Label string `json:"label"`
}

type Accessibility struct {
	AccessibilityData AccessibilityData `json:"accessibilityData"`
}

type ImageContainer struct {
	Thumbnails    []Thumbnail    `json:"thumbnails"`
	Accessibility *Accessibility `json:"accessibility,omitempty"`
}

type UnlocalizedText struct {
	SimpleText    string         `json:"simpleText"`
	Accessibility *Accessibility `json:"accessibility,omitempty"`
}

type Icon struct {
	IconType string `json:"iconType"`
}

// Emoji is an emoji reference inside a LocalizedRun.
type Emoji struct {
	EmojiID           string         `json:"emojiId"`
	Shortcuts         []string       `json:"shortcuts,omitempty"`
	SearchTerms       []string       `json:"searchTerms,omitempty"`
	SupportsSkinTone  *bool          `json:"supportsSkinTone,omitempty"`
	Image             ImageContainer `json:"image"`
	IsCustomEmoji     *bool          `json:"isCustomEmoji,omitempty"`
}

// LocalizedRun is one text-or-emoji fragment of a message body. Exactly
// one of Text or Emoji is set, discriminated by which of the "text" /
// "emoji" keys is present on the wire (the original's #[serde(untagged)]
// enum).
type LocalizedRun struct {
	Text  *string    `json:"-"`
	Emoji *EmojiRun  `json:"-"`
}

type EmojiRun struct {
	Emoji      Emoji    `json:"emoji"`
	VariantIDs []string `json:"variantIds,omitempty"`
}

func (r *LocalizedRun) UnmarshalJSON(data []byte) error {
	var probe struct {
		Text  *string          `json:"text"`
		Emoji *json.RawMessage `json:"emoji"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Text != nil {
		r.Text = probe.Text
		return nil
	}
	if probe.Emoji != nil {
		var er EmojiRun
		if err := json.Unmarshal(data, &er); err != nil {
			return fmt.Errorf("localized emoji run: %w", err)
		}
		r.Emoji = &er
		return nil
	}
	return fmt.Errorf("localized run has neither \"text\" nor \"emoji\"")
}

// ToChatString is the canonical flattening rule: standard emoji render
// as their accessibility label, custom emoji as ":label:", text runs
// verbatim.
func (r LocalizedRun) ToChatString() string {
	if r.Text != nil {
		return *r.Text
	}
	if r.Emoji != nil {
		label := ""
		if r.Emoji.Emoji.Image.Accessibility != nil {
			label = r.Emoji.Emoji.Image.Accessibility.AccessibilityData.Label
		}
		if r.Emoji.Emoji.IsCustomEmoji != nil && *r.Emoji.Emoji.IsCustomEmoji {
			return ":" + label + ":"
		}
		return label
	}
	return ""
}

type LocalizedText struct {
	Runs []LocalizedRun `json:"runs"`
}

// ToChatString flattens every run in order.
func (t LocalizedText) ToChatString() string {
	var s string
	for _, r := range t.Runs {
		s += r.ToChatString()
	}
	return s
}

type CommandMetadata struct {
	WebCommandMetadata json.RawMessage `json:"webCommandMetadata"`
}

type LiveChatItemContextMenuEndpoint struct {
	Params string `json:"params"`
}

type ContextMenuEndpoint struct {
	CommandMetadata                 CommandMetadata                 `json:"commandMetadata"`
	LiveChatItemContextMenuEndpoint LiveChatItemContextMenuEndpoint `json:"liveChatItemContextMenuEndpoint"`
}

type LiveChatAuthorBadgeRenderer struct {
	CustomThumbnail *ImageContainer `json:"customThumbnail,omitempty"`
	Icon            *Icon           `json:"icon,omitempty"`
	Tooltip         string          `json:"tooltip"`
	Accessibility   Accessibility   `json:"accessibility"`
}

type AuthorBadge struct {
	LiveChatAuthorBadgeRenderer LiveChatAuthorBadgeRenderer `json:"liveChatAuthorBadgeRenderer"`
}

// MessageRendererBase is embedded by every ChatItem variant.
type MessageRendererBase struct {
	AuthorName                  *UnlocalizedText `json:"authorName,omitempty"`
	AuthorPhoto                 ImageContainer   `json:"authorPhoto"`
	AuthorBadges                []AuthorBadge    `json:"authorBadges,omitempty"`
	ContextMenuEndpoint         ContextMenuEndpoint `json:"contextMenuEndpoint"`
	ID                          string           `json:"id"`
	TimestampUsec               MicroTimestamp   `json:"timestampUsec"`
	AuthorExternalChannelID     string           `json:"authorExternalChannelId"`
	ContextMenuAccessibility    Accessibility    `json:"contextMenuAccessibility"`
}

type TextMessageItem struct {
	MessageRendererBase
	Message *LocalizedText `json:"message,omitempty"`
}

type SuperchatItem struct {
	MessageRendererBase
	Message                 *LocalizedText  `json:"message,omitempty"`
	PurchaseAmountText      UnlocalizedText `json:"purchaseAmountText"`
	HeaderBackgroundColor   int64           `json:"headerBackgroundColor"`
	HeaderTextColor         int64           `json:"headerTextColor"`
	BodyBackgroundColor     int64           `json:"bodyBackgroundColor"`
	BodyTextColor           int64           `json:"bodyTextColor"`
	AuthorNameTextColor     int64           `json:"authorNameTextColor"`
}

type MembershipItemItem struct {
	MessageRendererBase
	HeaderSubText *LocalizedText `json:"headerSubText,omitempty"`
}

type PaidStickerItem struct {
	MessageRendererBase
	PurchaseAmountText       UnlocalizedText `json:"purchaseAmountText"`
	Sticker                  ImageContainer  `json:"sticker"`
	MoneyChipBackgroundColor int64           `json:"moneyChipBackgroundColor"`
	MoneyChipTextColor       int64           `json:"moneyChipTextColor"`
	StickerDisplayWidth      int64           `json:"stickerDisplayWidth"`
	StickerDisplayHeight     int64           `json:"stickerDisplayHeight"`
	BackgroundColor          int64           `json:"backgroundColor"`
	AuthorNameTextColor      int64           `json:"authorNameTextColor"`
}

type MembershipGiftItem struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"-"`
}

type MembershipGiftRedemptionItem struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"-"`
}

type ViewerEngagementItem struct {
	ID string `json:"id"`
}

// ChatItemKind discriminates ChatItem's variant.
type ChatItemKind string

const (
	ChatItemTextMessage              ChatItemKind = "text_message"
	ChatItemSuperchat                ChatItemKind = "superchat"
	ChatItemMembershipItem           ChatItemKind = "membership_item"
	ChatItemPaidSticker              ChatItemKind = "paid_sticker"
	ChatItemMembershipGift           ChatItemKind = "membership_gift"
	ChatItemMembershipGiftRedemption ChatItemKind = "membership_gift_redemption"
	ChatItemViewerEngagement         ChatItemKind = "viewer_engagement"
)

// ChatItem is the tagged union of message renderers. Exactly one of the
// pointer fields matching Kind is non-nil.
type ChatItem struct {
	Kind ChatItemKind

	TextMessage              *TextMessageItem
	Superchat                *SuperchatItem
	MembershipItem           *MembershipItemItem
	PaidSticker              *PaidStickerItem
	MembershipGift           *MembershipGiftItem
	MembershipGiftRedemption *MembershipGiftRedemptionItem
	ViewerEngagement         *ViewerEngagementItem
}

func (c *ChatItem) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe["liveChatTextMessageRenderer"] != nil:
		var v TextMessageItem
		if err := json.Unmarshal(probe["liveChatTextMessageRenderer"], &v); err != nil {
			return fmt.Errorf("liveChatTextMessageRenderer: %w", err)
		}
		c.Kind, c.TextMessage = ChatItemTextMessage, &v
	case probe["liveChatPaidMessageRenderer"] != nil:
		var v SuperchatItem
		if err := json.Unmarshal(probe["liveChatPaidMessageRenderer"], &v); err != nil {
			return fmt.Errorf("liveChatPaidMessageRenderer: %w", err)
		}
		c.Kind, c.Superchat = ChatItemSuperchat, &v
	case probe["liveChatMembershipItemRenderer"] != nil:
		var v MembershipItemItem
		if err := json.Unmarshal(probe["liveChatMembershipItemRenderer"], &v); err != nil {
			return fmt.Errorf("liveChatMembershipItemRenderer: %w", err)
		}
		c.Kind, c.MembershipItem = ChatItemMembershipItem, &v
	case probe["liveChatPaidStickerRenderer"] != nil:
		var v PaidStickerItem
		if err := json.Unmarshal(probe["liveChatPaidStickerRenderer"], &v); err != nil {
			return fmt.Errorf("liveChatPaidStickerRenderer: %w", err)
		}
		c.Kind, c.PaidSticker = ChatItemPaidSticker, &v
	case probe["liveChatSponsorshipsGiftPurchaseAnnouncementRenderer"] != nil:
		raw := probe["liveChatSponsorshipsGiftPurchaseAnnouncementRenderer"]
		var v MembershipGiftItem
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("liveChatSponsorshipsGiftPurchaseAnnouncementRenderer: %w", err)
		}
		v.Data = raw
		c.Kind, c.MembershipGift = ChatItemMembershipGift, &v
	case probe["liveChatSponsorshipsGiftRedemptionAnnouncementRenderer"] != nil:
		raw := probe["liveChatSponsorshipsGiftRedemptionAnnouncementRenderer"]
		var v MembershipGiftRedemptionItem
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("liveChatSponsorshipsGiftRedemptionAnnouncementRenderer: %w", err)
		}
		v.Data = raw
		c.Kind, c.MembershipGiftRedemption = ChatItemMembershipGiftRedemption, &v
	case probe["liveChatViewerEngagementMessageRenderer"] != nil:
		var v ViewerEngagementItem
		if err := json.Unmarshal(probe["liveChatViewerEngagementMessageRenderer"], &v); err != nil {
			return fmt.Errorf("liveChatViewerEngagementMessageRenderer: %w", err)
		}
		c.Kind, c.ViewerEngagement = ChatItemViewerEngagement, &v
	default:
		return fmt.Errorf("unrecognized chat item renderer")
	}
	return nil
}

// ID returns the stable message id regardless of which variant this is.
func (c *ChatItem) ID() string {
	switch c.Kind {
	case ChatItemTextMessage:
		return c.TextMessage.ID
	case ChatItemSuperchat:
		return c.Superchat.ID
	case ChatItemMembershipItem:
		return c.MembershipItem.ID
	case ChatItemPaidSticker:
		return c.PaidSticker.ID
	case ChatItemMembershipGift:
		return c.MembershipGift.ID
	case ChatItemMembershipGiftRedemption:
		return c.MembershipGiftRedemption.ID
	case ChatItemViewerEngagement:
		return c.ViewerEngagement.ID
	default:
		return ""
	}
}

// ActionKind discriminates Action's variant.
type ActionKind string

const (
	ActionAddChatItem           ActionKind = "add_chat_item"
	ActionRemoveChatItem        ActionKind = "remove_chat_item"
	ActionRemoveChatItemByAuthor ActionKind = "remove_chat_item_by_author"
	ActionAddLiveChatTicker     ActionKind = "add_live_chat_ticker"
	ActionReplayChat            ActionKind = "replay_chat"
	ActionOpaque                ActionKind = "opaque"
)

type AddChatItemAction struct {
	Item     ChatItem `json:"item"`
	ClientID *string  `json:"clientId,omitempty"`
}

type RemoveChatItemAction struct {
	TargetItemID string `json:"targetItemId"`
}

type RemoveChatItemByAuthorAction struct {
	ExternalChannelID string `json:"externalChannelId"`
}

type ReplayChatAction struct {
	Actions              []Action     `json:"actions"`
	VideoOffsetTimeMsec  CoercedInt64 `json:"videoOffsetTimeMsec"`
}

// Action is a single server-emitted directive. Unknown variants
// deserialize without error into Opaque, per the forward-compatibility
// requirement.
type Action struct {
	Kind                 ActionKind
	ClickTrackingParams  string

	AddChatItem           *AddChatItemAction
	RemoveChatItem        *RemoveChatItemAction
	RemoveChatItemByAuthor *RemoveChatItemByAuthorAction
	AddLiveChatTicker     json.RawMessage
	ReplayChat            *ReplayChatAction
	Opaque                json.RawMessage
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if raw, ok := probe["clickTrackingParams"]; ok {
		_ = json.Unmarshal(raw, &a.ClickTrackingParams)
	}
	switch {
	case probe["addChatItemAction"] != nil:
		var v AddChatItemAction
		if err := json.Unmarshal(probe["addChatItemAction"], &v); err != nil {
			return fmt.Errorf("addChatItemAction: %w", err)
		}
		a.Kind, a.AddChatItem = ActionAddChatItem, &v
	case probe["removeChatItemAction"] != nil:
		var v RemoveChatItemAction
		if err := json.Unmarshal(probe["removeChatItemAction"], &v); err != nil {
			return fmt.Errorf("removeChatItemAction: %w", err)
		}
		a.Kind, a.RemoveChatItem = ActionRemoveChatItem, &v
	case probe["removeChatItemByAuthorAction"] != nil:
		var v RemoveChatItemByAuthorAction
		if err := json.Unmarshal(probe["removeChatItemByAuthorAction"], &v); err != nil {
			return fmt.Errorf("removeChatItemByAuthorAction: %w", err)
		}
		a.Kind, a.RemoveChatItemByAuthor = ActionRemoveChatItemByAuthor, &v
	case probe["addLiveChatTickerItemAction"] != nil:
		a.Kind = ActionAddLiveChatTicker
		a.AddLiveChatTicker = probe["addLiveChatTickerItemAction"]
	case probe["replayChatItemAction"] != nil:
		var v ReplayChatAction
		if err := json.Unmarshal(probe["replayChatItemAction"], &v); err != nil {
			return fmt.Errorf("replayChatItemAction: %w", err)
		}
		a.Kind, a.ReplayChat = ActionReplayChat, &v
	default:
		a.Kind = ActionOpaque
		a.Opaque = data
	}
	return nil
}

// InvalidationID names the signaling topic embedded in an Invalidation
// continuation.
type InvalidationID struct {
	ObjectSource             int    `json:"objectSource"`
	ObjectID                 string `json:"objectId"`
	Topic                    string `json:"topic"`
	SubscribeToGcmTopics     bool   `json:"subscribeToGcmTopics"`
	ProtoCreationTimestampMs string `json:"protoCreationTimestampMs"`
}

type InvalidationContinuation struct {
	InvalidationID InvalidationID `json:"invalidationId"`
	TimeoutMs      int            `json:"timeoutMs"`
	Continuation   string         `json:"continuation"`
}

type TimedContinuation struct {
	TimeoutMs    int    `json:"timeoutMs"`
	Continuation string `json:"continuation"`
}

type ReplayContinuation struct {
	TimeUntilLastMessageMsec int    `json:"timeUntilLastMessageMsec"`
	Continuation             string `json:"continuation"`
}

type PlayerSeekContinuation struct {
	Continuation string `json:"continuation"`
}

// ContinuationKind discriminates Continuation's variant.
type ContinuationKind string

const (
	ContinuationInvalidation ContinuationKind = "invalidation"
	ContinuationTimed        ContinuationKind = "timed"
	ContinuationReplay       ContinuationKind = "replay"
	ContinuationPlayerSeek   ContinuationKind = "player_seek"
)

// Continuation describes how to obtain the next batch of actions.
type Continuation struct {
	Kind ContinuationKind

	Invalidation InvalidationContinuation
	Timed        TimedContinuation
	Replay       ReplayContinuation
	PlayerSeek   PlayerSeekContinuation
}

func (c *Continuation) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe["invalidationContinuationData"] != nil:
		c.Kind = ContinuationInvalidation
		return json.Unmarshal(probe["invalidationContinuationData"], &c.Invalidation)
	case probe["timedContinuationData"] != nil:
		c.Kind = ContinuationTimed
		return json.Unmarshal(probe["timedContinuationData"], &c.Timed)
	case probe["liveChatReplayContinuationData"] != nil:
		c.Kind = ContinuationReplay
		return json.Unmarshal(probe["liveChatReplayContinuationData"], &c.Replay)
	case probe["playerSeekContinuationData"] != nil:
		c.Kind = ContinuationPlayerSeek
		return json.Unmarshal(probe["playerSeekContinuationData"], &c.PlayerSeek)
	default:
		return fmt.Errorf("unrecognized continuation variant")
	}
}

// Token returns the opaque continuation string regardless of variant.
func (c Continuation) Token() string {
	switch c.Kind {
	case ContinuationInvalidation:
		return c.Invalidation.Continuation
	case ContinuationTimed:
		return c.Timed.Continuation
	case ContinuationReplay:
		return c.Replay.Continuation
	case ContinuationPlayerSeek:
		return c.PlayerSeek.Continuation
	default:
		return ""
	}
}

// GetLiveChatResponse is the decoded body of one chat-fetch call.
type GetLiveChatResponse struct {
	ResponseContext       json.RawMessage                         `json:"responseContext,omitempty"`
	ContinuationContents  *GetLiveChatResponseContinuationContents `json:"continuationContents,omitempty"`
}

type GetLiveChatResponseContinuationContents struct {
	LiveChatContinuation LiveChatContinuation `json:"liveChatContinuation"`
}

type LiveChatContinuation struct {
	Continuations []Continuation `json:"continuations"`
	Actions       []Action       `json:"actions,omitempty"`
}
