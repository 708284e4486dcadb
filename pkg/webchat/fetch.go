package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/killallgit/chatcast/pkg/chaterrors"
	"github.com/killallgit/chatcast/pkg/config"
	"github.com/killallgit/chatcast/pkg/logger"
)

const (
	getLiveChatURL       = "https://www.youtube.com/youtubei/v1/live_chat/get_live_chat"
	getLiveChatReplayURL = "https://www.youtube.com/youtubei/v1/live_chat/get_live_chat_replay"
)

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

// GetLiveChatRequestBody is the POST body for one chat-fetch RPC call.
type GetLiveChatRequestBody struct {
	Context      innertubeContext `json:"context"`
	Continuation string           `json:"continuation"`
}

// FetchClient issues chat-fetch RPC calls against the innertube endpoint.
type FetchClient struct {
	httpClient *http.Client
	log        *logger.ComponentLogger
}

func NewFetchClient(cfg *config.HTTPConfig) *FetchClient {
	return &FetchClient{
		httpClient: SharedHTTPClient(cfg),
		log:        logger.WithComponent("webchat.fetch"),
	}
}

// ActionChunk is one fetch's worth of actions plus the bookkeeping
// needed to issue the next fetch.
type ActionChunk struct {
	Actions          []Action
	NextContinuation string
	SignalingTopic   string
	TimeoutMs        int
}

// Fetch performs one RPC call and derives an ActionChunk from the
// response's continuation and action list.
func (f *FetchClient) Fetch(ctx context.Context, cc *ChatContext) (*ActionChunk, error) {
	body := GetLiveChatRequestBody{
		Context: innertubeContext{
			Client: innertubeClient{ClientName: "WEB", ClientVersion: cc.ClientVersion},
		},
		Continuation: cc.Continuation,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, chaterrors.Wrap(chaterrors.KindGeneralRequest, "encoding chat fetch request", err)
	}

	endpoint := getLiveChatURL
	if !cc.Status.UpdatesLive() {
		endpoint = getLiveChatReplayURL
	}
	url := fmt.Sprintf("%s?key=%s&prettyPrint=false", endpoint, cc.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, chaterrors.Wrap(chaterrors.KindGeneralRequest, "building chat fetch request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	f.log.Debug("fetching chat actions", "video_id", cc.VideoID)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, chaterrors.FromHTTPError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		kind := chaterrors.KindBadStatus
		if resp.StatusCode < 500 {
			kind = chaterrors.KindClientError
		}
		return nil, chaterrors.New(kind, fmt.Sprintf("chat fetch returned status %d", resp.StatusCode))
	}

	var parsed GetLiveChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, chaterrors.Wrap(chaterrors.KindDeserialization, "decoding chat fetch response", err)
	}

	return deriveActionChunk(cc, &parsed)
}

// deriveActionChunk extracts the continuation token, the next-fetch
// timeout, the signaling topic (if any), and the flattened action list
// from a decoded response, applying the splicing rules for replay
// wrappers: a finished-replay context's nested ReplayChat actions are
// unwrapped into the flat list, while a live context ignores replay
// wrappers outright since it has moved past them.
func deriveActionChunk(cc *ChatContext, resp *GetLiveChatResponse) (*ActionChunk, error) {
	if resp.ContinuationContents == nil {
		return nil, chaterrors.New(chaterrors.KindMissingContinuation, "response had no continuationContents")
	}
	lcc := resp.ContinuationContents.LiveChatContinuation
	if len(lcc.Continuations) == 0 {
		return nil, chaterrors.New(chaterrors.KindMissingContinuation, "response had no continuation entries")
	}

	cont := lcc.Continuations[0]
	chunk := &ActionChunk{}

	switch cont.Kind {
	case ContinuationInvalidation:
		chunk.NextContinuation = cont.Invalidation.Continuation
		chunk.TimeoutMs = cont.Invalidation.TimeoutMs
		chunk.SignalingTopic = cont.Invalidation.InvalidationID.Topic
	case ContinuationTimed:
		chunk.NextContinuation = cont.Timed.Continuation
		chunk.TimeoutMs = cont.Timed.TimeoutMs
	case ContinuationReplay:
		chunk.NextContinuation = cont.Replay.Continuation
		chunk.TimeoutMs = cont.Replay.TimeUntilLastMessageMsec
	case ContinuationPlayerSeek:
		return nil, chaterrors.New(chaterrors.KindEndOfContinuation, "reached a player-seek continuation; replay is exhausted")
	default:
		return nil, chaterrors.New(chaterrors.KindEndOfContinuation, "unrecognized continuation kind")
	}

	for _, a := range lcc.Actions {
		if a.Kind == ActionReplayChat {
			if cc.Status.UpdatesLive() {
				continue
			}
			chunk.Actions = append(chunk.Actions, a.ReplayChat.Actions...)
			continue
		}
		chunk.Actions = append(chunk.Actions, a)
	}

	return chunk, nil
}
