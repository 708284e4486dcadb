package webchat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/killallgit/chatcast/pkg/chaterrors"
	"github.com/killallgit/chatcast/pkg/config"
	"github.com/killallgit/chatcast/pkg/logger"
)

var contextLog = logger.WithComponent("webchat.bootstrap")

var (
	reYtInitialData   = regexp.MustCompile(`var ytInitialData\s*=\s*(\{.+?\});`)
	reInnertubeAPIKey = regexp.MustCompile(`["']INNERTUBE_API_KEY["']:\s*["']([^"']+)["']`)
	reTangoAPIKey     = regexp.MustCompile(`["']LIVE_CHAT_BASE_TANGO_CONFIG["']:\s*\{\s*["']apiKey["']\s*:\s*["']([^"']+)["']`)
	reClientVersion   = regexp.MustCompile(`["']clientVersion["']:\s*["']([\d.]+?)["']`)

	reIsLiveContent = regexp.MustCompile(`["']isLiveContent["']:\s*(true)`)
	reIsLiveNow     = regexp.MustCompile(`["']isLiveNow["']:\s*(true)`)
	reIsReplay      = regexp.MustCompile(`["']isReplay["']:\s*(true)`)

	reLiveChatContinuation = regexp.MustCompile(`Live chat["'],\s*["']selected["']:\s*(?:true|false),\s*["']continuation["']:\s*\{\s*["']reloadContinuationData["']:\s*\{["']continuation["']:\s*["']([^"']+)["']`)
	reReplayChatContinuation = regexp.MustCompile(`Top chat replay["'],\s*["']selected["']:\s*true,\s*["']continuation["']:\s*\{\s*["']reloadContinuationData["']:\s*\{["']continuation["']:\s*["']([^"']+)["']`)

	reStreamLink  = regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.?be(?:\.com)?/?.*(?:watch|embed)?(?:.*v=|v/|/)([A-Za-z0-9_-]+)`)
	reChannelLink = regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/(?:channel/(UC[\w-]{21}[AQgw])|(@[\w]+))`)
)

// LiveStreamStatus classifies the watch page a video id resolved to.
type LiveStreamStatus int

const (
	Upcoming LiveStreamStatus = iota
	Live
	Replay
)

func (s LiveStreamStatus) String() string {
	switch s {
	case Live:
		return "live"
	case Replay:
		return "replay"
	default:
		return "upcoming"
	}
}

// UpdatesLive reports whether this status corresponds to a broadcast
// that is still actively producing new chat actions, as opposed to a
// finished stream being replayed. An Upcoming stream has no chat yet
// but will, so it counts as updating live the same as an active one.
func (s LiveStreamStatus) UpdatesLive() bool {
	return s == Upcoming || s == Live
}

// ChannelSearchOptions selects which video on a channel's streams page
// NewFromChannel resolves to. First* variants scan the grid bottom-up
// (oldest matching tile first); Latest* variants scan top-down (newest
// matching tile first), mirroring the page's own newest-first layout.
// The *LiveOrUpcoming variants also accept an upcoming stream, but a
// Live tile always wins over an Upcoming one regardless of scan order.
type ChannelSearchOptions int

const (
	FirstLiveOrUpcoming ChannelSearchOptions = iota
	LatestLiveOrUpcoming
	FirstLive
	LatestLive
)

// DefaultChannelSearchOptions is applied when a caller has no particular
// preference, matching the original client's default.
const DefaultChannelSearchOptions = FirstLiveOrUpcoming

func (o ChannelSearchOptions) reversed() bool {
	switch o {
	case FirstLive, FirstLiveOrUpcoming:
		return true
	default:
		return false
	}
}

func (o ChannelSearchOptions) acceptsUpcoming() bool {
	return o == FirstLiveOrUpcoming || o == LatestLiveOrUpcoming
}

// ChatContext carries everything the fetch and signaling stages need to
// keep pulling chat actions for one video.
type ChatContext struct {
	VideoID       string
	APIKey        string
	TangoAPIKey   string
	ClientVersion string
	Continuation  string
	Status        LiveStreamStatus
}

func fetchPage(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", chaterrors.Wrap(chaterrors.KindGeneralRequest, "building page request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", chaterrors.FromHTTPError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", chaterrors.New(chaterrors.KindBadStatus, fmt.Sprintf("page request returned status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", chaterrors.Wrap(chaterrors.KindGeneralRequest, "reading page body", err)
	}
	return string(body), nil
}

// resolveChannelID accepts a raw UC id, a raw @handle, or a full channel
// URL, returning the id/handle to build the streams page URL from.
func resolveChannelID(channelID string) (string, error) {
	if strings.HasPrefix(channelID, "UC") || strings.HasPrefix(channelID, "@") {
		return channelID, nil
	}
	if parsed, ok := ParseChannelLink(channelID); ok {
		return parsed, nil
	}
	return "", chaterrors.New(chaterrors.KindInvalidChannelID, fmt.Sprintf("channel id %q is not a UC id, @handle, or channel URL", channelID))
}

// NewFromChannel resolves a channel id to a single video according to
// options, then delegates to NewFromLive for that video.
func NewFromChannel(ctx context.Context, cfg *config.Config, channelID string, options ChannelSearchOptions) (*ChatContext, error) {
	resolved, err := resolveChannelID(channelID)
	if err != nil {
		return nil, err
	}

	var streamsURL string
	if strings.HasPrefix(resolved, "@") {
		streamsURL = fmt.Sprintf("https://www.youtube.com/%s/streams", resolved)
	} else {
		streamsURL = fmt.Sprintf("https://www.youtube.com/channel/%s/streams", resolved)
	}

	client := SharedHTTPClient(&cfg.HTTP)
	contextLog.Debug("fetching channel streams page", "channel", resolved)
	html, err := fetchPage(ctx, client, streamsURL)
	if err != nil {
		return nil, err
	}

	match := reYtInitialData.FindStringSubmatch(html)
	if match == nil {
		return nil, chaterrors.New(chaterrors.KindMissingInitialData, "ytInitialData not found on channel streams page")
	}
	var data YouTubeInitialData
	if err := json.Unmarshal([]byte(match[1]), &data); err != nil {
		return nil, chaterrors.Wrap(chaterrors.KindDeserialization, "decoding ytInitialData", err)
	}

	videoID, err := findMatchingVideo(data, options)
	if err != nil {
		return nil, err
	}

	contextLog.Info("resolved channel to video", "channel", resolved, "video_id", videoID)
	return NewFromLive(ctx, cfg, videoID)
}

// findMatchingVideo scans the channel's rich item grid for a tile
// matching options. A Live tile always wins outright and ends the
// scan; an Upcoming tile (only relevant to the *LiveOrUpcoming
// variants) is remembered as a fallback but never overwrites a Live
// tile already seen.
func findMatchingVideo(data YouTubeInitialData, options ChannelSearchOptions) (string, error) {
	var tiles []RichGridItem
	for _, tab := range data.Contents.TwoColumnBrowseResultsRenderer.Tabs {
		if tab.TabRenderer == nil || tab.TabRenderer.Content == nil {
			continue
		}
		if tab.TabRenderer.Content.SectionListRenderer == nil {
			continue
		}
		for _, section := range tab.TabRenderer.Content.SectionListRenderer.Contents {
			if section.ItemSectionRenderer == nil {
				continue
			}
			tiles = append(tiles, section.ItemSectionRenderer.Contents...)
		}
	}
	if len(tiles) == 0 {
		return "", chaterrors.New(chaterrors.KindNoMatchingLiveTab, "channel streams page had no video grid")
	}

	order := make([]int, len(tiles))
	for i := range order {
		order[i] = i
	}
	if options.reversed() {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	upcomingID := ""
	for _, i := range order {
		t := tiles[i]
		if t.RichItemRenderer == nil || t.RichItemRenderer.Content.VideoRenderer == nil {
			continue
		}
		v := t.RichItemRenderer.Content.VideoRenderer
		if v.IsLive() {
			return v.VideoID, nil
		}
		if options.acceptsUpcoming() && v.IsUpcoming() && upcomingID == "" {
			upcomingID = v.VideoID
		}
	}
	if upcomingID != "" {
		return upcomingID, nil
	}
	return "", chaterrors.New(chaterrors.KindNoMatchingStream, "no video on channel streams page matched the requested search options")
}

// NewFromLive resolves a video id to a ChatContext by fetching its
// watch page and scraping the innertube key, client version, live
// status, and initial chat continuation token out of the embedded page
// state.
func NewFromLive(ctx context.Context, cfg *config.Config, videoID string) (*ChatContext, error) {
	if len(videoID) != 11 {
		return nil, chaterrors.New(chaterrors.KindInvalidVideoID, fmt.Sprintf("video id %q is not 11 characters", videoID))
	}

	client := SharedHTTPClient(&cfg.HTTP)
	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	contextLog.Debug("fetching watch page", "video_id", videoID)
	html, err := fetchPage(ctx, client, url)
	if err != nil {
		return nil, err
	}

	status, err := classifyLiveStatus(html, videoID)
	if err != nil {
		return nil, err
	}

	apiKeyMatch := reInnertubeAPIKey.FindStringSubmatch(html)
	if apiKeyMatch == nil {
		return nil, chaterrors.New(chaterrors.KindNoInnerTubeKey, "no innertube api key found on watch page")
	}

	tangoAPIKey := ""
	if m := reTangoAPIKey.FindStringSubmatch(html); m != nil {
		tangoAPIKey = m[1]
	}

	clientVersion := cfg.Bootstrap.DefaultClientVersion
	if cv := reClientVersion.FindStringSubmatch(html); cv != nil {
		clientVersion = cv[1]
	} else {
		contextLog.Warn("missing client version, using default", "fallback", clientVersion)
	}

	continuationRe := reLiveChatContinuation
	continuationKind := "live_chat"
	if !status.UpdatesLive() {
		continuationRe = reReplayChatContinuation
		continuationKind = "replay_chat"
	}
	contMatch := continuationRe.FindStringSubmatch(html)
	if contMatch == nil {
		return nil, chaterrors.New(chaterrors.KindNoChatContinuation, "no chat continuation token found on watch page")
	}

	cc := &ChatContext{
		VideoID:       videoID,
		APIKey:        apiKeyMatch[1],
		TangoAPIKey:   tangoAPIKey,
		ClientVersion: clientVersion,
		Continuation:  contMatch[1],
		Status:        status,
	}
	contextLog.Info("resolved watch page", "video_id", videoID, "status", status.String(), "continuation_kind", continuationKind)
	return cc, nil
}

// classifyLiveStatus derives a video's live status from the watch page
// HTML. isLiveContent gates whether this video is a stream at all;
// isLiveNow and isReplay disambiguate Live from Replay, and the
// absence of both means the stream hasn't started yet.
func classifyLiveStatus(html, videoID string) (LiveStreamStatus, error) {
	if !reIsLiveContent.MatchString(html) {
		return Upcoming, chaterrors.New(chaterrors.KindNotStream, fmt.Sprintf("video %q is not a stream", videoID))
	}
	if reIsLiveNow.MatchString(html) {
		return Live, nil
	}
	if reIsReplay.MatchString(html) {
		return Replay, nil
	}
	return Upcoming, nil
}

// ParseStreamLink extracts a video id from an arbitrary YouTube URL.
func ParseStreamLink(url string) (string, bool) {
	m := reStreamLink.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseChannelLink extracts a channel identifier (a UC id or a handle)
// from a full channel URL.
func ParseChannelLink(url string) (string, bool) {
	m := reChannelLink.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", false
}
