package webchat

import "encoding/json"

// YouTubeInitialData is the top-level shape of the ytInitialData object
// embedded in a channel's /streams (or /live) page, trimmed to the
// fields this package actually reads.
type YouTubeInitialData struct {
	Contents PageContentsRenderer `json:"contents"`
}

type PageContentsRenderer struct {
	TwoColumnBrowseResultsRenderer TwoColumnBrowseResultsRenderer `json:"twoColumnBrowseResultsRenderer"`
}

type TwoColumnBrowseResultsRenderer struct {
	Tabs []TabItemRenderer `json:"tabs"`
}

// TabItemRenderer wraps either a populated TabRenderer or a collapsed
// ExpandableTabRenderer; only one of the two keys is present per tab.
type TabItemRenderer struct {
	TabRenderer           *TabRenderer           `json:"tabRenderer,omitempty"`
	ExpandableTabRenderer *ExpandableTabRenderer `json:"expandableTabRenderer,omitempty"`
}

type TabRenderer struct {
	Title    string               `json:"title"`
	Selected bool                 `json:"selected"`
	Content  *FeedContentsRenderer `json:"content,omitempty"`
	Endpoint *FeedEndpoint        `json:"endpoint,omitempty"`
}

type ExpandableTabRenderer struct {
	Title    string        `json:"title"`
	Endpoint *FeedEndpoint `json:"endpoint,omitempty"`
}

type FeedEndpoint struct {
	BrowseEndpoint BrowseEndpoint `json:"browseEndpoint"`
}

type BrowseEndpoint struct {
	CanonicalBaseURL string `json:"canonicalBaseUrl"`
	Params           string `json:"params"`
}

type FeedContentsRenderer struct {
	SectionListRenderer *SectionListRenderer `json:"sectionListRenderer,omitempty"`
}

type SectionListRenderer struct {
	Contents []SectionListContent `json:"contents"`
}

type SectionListContent struct {
	ItemSectionRenderer *ItemSectionRenderer `json:"itemSectionRenderer,omitempty"`
}

type ItemSectionRenderer struct {
	Contents []RichGridItem `json:"contents"`
}

// RichGridItem is one tile in the channel's video grid: either a video
// tile or the sentinel continuation item appended at the end of a page.
type RichGridItem struct {
	RichItemRenderer        *RichItemRenderer        `json:"richItemRenderer,omitempty"`
	ContinuationItemRenderer json.RawMessage         `json:"continuationItemRenderer,omitempty"`
}

type RichItemRenderer struct {
	Content RichItemContent `json:"content"`
}

type RichItemContent struct {
	VideoRenderer *VideoRenderer `json:"videoRenderer,omitempty"`
}

type VideoRenderer struct {
	VideoID           string             `json:"videoId"`
	Title             *LocalizedText     `json:"title,omitempty"`
	ThumbnailOverlays []ThumbnailOverlay `json:"thumbnailOverlays,omitempty"`
}

// ThumbnailOverlay carries the badge that tells a stream's status apart
// from a recorded video: an upcoming stream gets a TimeStatus overlay
// whose style is "UPCOMING", a live stream gets one whose style is
// "LIVE", and an ordinary recording gets the default style (or none).
type ThumbnailOverlay struct {
	TimeStatusRenderer *VideoTimeStatus `json:"thumbnailOverlayTimeStatusRenderer,omitempty"`
}

type VideoTimeStatus struct {
	Style string `json:"style"`
}

// IsLive reports whether this tile's overlay marks it as currently live.
func (v VideoRenderer) IsLive() bool {
	for _, o := range v.ThumbnailOverlays {
		if o.TimeStatusRenderer != nil && o.TimeStatusRenderer.Style == "LIVE" {
			return true
		}
	}
	return false
}

// IsUpcoming reports whether this tile's overlay marks it as a
// scheduled, not-yet-started stream.
func (v VideoRenderer) IsUpcoming() bool {
	for _, o := range v.ThumbnailOverlays {
		if o.TimeStatusRenderer != nil && o.TimeStatusRenderer.Style == "UPCOMING" {
			return true
		}
	}
	return false
}
