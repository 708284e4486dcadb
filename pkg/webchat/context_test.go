package webchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStreamLinkVariants(t *testing.T) {
	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/not-youtube", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStreamLink(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func TestParseChannelLinkVariants(t *testing.T) {
	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/channel/UCabcdefghijklmnopqrstuA", "UCabcdefghijklmnopqrstuA", true},
		{"https://www.youtube.com/@somehandle", "@somehandle", true},
		{"https://example.com/nope", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseChannelLink(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func TestFindMatchingVideoReversedScansBottomUp(t *testing.T) {
	data := YouTubeInitialData{
		Contents: PageContentsRenderer{
			TwoColumnBrowseResultsRenderer: TwoColumnBrowseResultsRenderer{
				Tabs: []TabItemRenderer{
					{TabRenderer: &TabRenderer{
						Content: &FeedContentsRenderer{
							SectionListRenderer: &SectionListRenderer{
								Contents: []SectionListContent{
									{ItemSectionRenderer: &ItemSectionRenderer{
										Contents: []RichGridItem{
											tile("first", true, false),
											tile("second", true, false),
										},
									}},
								},
							},
						},
					}},
				},
			},
		},
	}

	id, err := findMatchingVideo(data, FirstLive)
	assert.NoError(t, err)
	assert.Equal(t, "second", id)

	id, err = findMatchingVideo(data, LatestLive)
	assert.NoError(t, err)
	assert.Equal(t, "first", id)
}

func TestFindMatchingVideoNoMatchErrors(t *testing.T) {
	data := YouTubeInitialData{
		Contents: PageContentsRenderer{
			TwoColumnBrowseResultsRenderer: TwoColumnBrowseResultsRenderer{
				Tabs: []TabItemRenderer{
					{TabRenderer: &TabRenderer{
						Content: &FeedContentsRenderer{
							SectionListRenderer: &SectionListRenderer{
								Contents: []SectionListContent{
									{ItemSectionRenderer: &ItemSectionRenderer{
										Contents: []RichGridItem{tile("vod", false, false)},
									}},
								},
							},
						},
					}},
				},
			},
		},
	}
	_, err := findMatchingVideo(data, LatestLive)
	assert.Error(t, err)
}

func TestFindMatchingVideoLiveAlwaysWinsOverUpcoming(t *testing.T) {
	data := YouTubeInitialData{
		Contents: PageContentsRenderer{
			TwoColumnBrowseResultsRenderer: TwoColumnBrowseResultsRenderer{
				Tabs: []TabItemRenderer{
					{TabRenderer: &TabRenderer{
						Content: &FeedContentsRenderer{
							SectionListRenderer: &SectionListRenderer{
								Contents: []SectionListContent{
									{ItemSectionRenderer: &ItemSectionRenderer{
										Contents: []RichGridItem{
											tile("upcoming-one", false, true),
											tile("the-live-one", true, false),
										},
									}},
								},
							},
						},
					}},
				},
			},
		},
	}

	id, err := findMatchingVideo(data, FirstLiveOrUpcoming)
	assert.NoError(t, err)
	assert.Equal(t, "the-live-one", id)

	id, err = findMatchingVideo(data, LatestLiveOrUpcoming)
	assert.NoError(t, err)
	assert.Equal(t, "the-live-one", id)
}

func TestFindMatchingVideoFallsBackToUpcomingWhenNoLiveTile(t *testing.T) {
	data := YouTubeInitialData{
		Contents: PageContentsRenderer{
			TwoColumnBrowseResultsRenderer: TwoColumnBrowseResultsRenderer{
				Tabs: []TabItemRenderer{
					{TabRenderer: &TabRenderer{
						Content: &FeedContentsRenderer{
							SectionListRenderer: &SectionListRenderer{
								Contents: []SectionListContent{
									{ItemSectionRenderer: &ItemSectionRenderer{
										Contents: []RichGridItem{tile("upcoming-one", false, true)},
									}},
								},
							},
						},
					}},
				},
			},
		},
	}

	id, err := findMatchingVideo(data, FirstLiveOrUpcoming)
	assert.NoError(t, err)
	assert.Equal(t, "upcoming-one", id)

	_, err = findMatchingVideo(data, FirstLive)
	assert.Error(t, err)
}

func TestResolveChannelIDAcceptsAllThreeForms(t *testing.T) {
	id, err := resolveChannelID("UCabcdefghijklmnopqrstuA")
	assert.NoError(t, err)
	assert.Equal(t, "UCabcdefghijklmnopqrstuA", id)

	id, err = resolveChannelID("@somehandle")
	assert.NoError(t, err)
	assert.Equal(t, "@somehandle", id)

	id, err = resolveChannelID("https://www.youtube.com/@somehandle")
	assert.NoError(t, err)
	assert.Equal(t, "@somehandle", id)

	_, err = resolveChannelID("not a channel id")
	assert.Error(t, err)
}

func tile(videoID string, live, upcoming bool) RichGridItem {
	var overlays []ThumbnailOverlay
	if live {
		overlays = append(overlays, ThumbnailOverlay{TimeStatusRenderer: &VideoTimeStatus{Style: "LIVE"}})
	}
	if upcoming {
		overlays = append(overlays, ThumbnailOverlay{TimeStatusRenderer: &VideoTimeStatus{Style: "UPCOMING"}})
	}
	return RichGridItem{
		RichItemRenderer: &RichItemRenderer{
			Content: RichItemContent{
				VideoRenderer: &VideoRenderer{VideoID: videoID, ThumbnailOverlays: overlays},
			},
		},
	}
}
