package webchat

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/chatcast/pkg/chaterrors"
	"github.com/killallgit/chatcast/pkg/config"
	"github.com/killallgit/chatcast/pkg/logger"
)

// The GCM "forever-frame" push channel this file speaks is the same
// long-poll protocol YouTube uses for live chat invalidation topics:
// pick a front-end server (choose-server), bind a session against it
// (init-session), then hold a chunked GET open (subscribe) and re-issue
// the whole handshake whenever the server closes it.
const (
	signalerChooseServerURL = "https://signaler-pa.youtube.com/punctual/v1/chooseServer"
	signalerSubscribeURL    = "https://signaler-pa.youtube.com/punctual/multi-watch/channel"
)

const zxAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// genZX produces the random 11-character "zx" cache-busting token Google's
// push-channel endpoints expect on every request.
func genZX() (string, error) {
	buf := make([]byte, 11)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 11)
	for i, b := range buf {
		out[i] = zxAlphabet[int(b)%len(zxAlphabet)]
	}
	return string(out), nil
}

// SignalerState is the mutable session record a signaling rotation
// carries: the topic being watched, the signaling API key, and the
// handshake-assigned identifiers that accumulate across a rotation's
// three phases. reset clears the handshake fields and counters, but
// never Topic or APIKey, so a new rotation can re-handshake for the
// same topic.
type SignalerState struct {
	mu sync.Mutex

	Topic      string
	APIKey     string
	GSessionID string
	SID        string
	RID        int
	AID        int
	SessionN   int
}

func (s *SignalerState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GSessionID = ""
	s.SID = ""
	s.RID = 0
	s.AID = 0
	s.SessionN = 0
}

// snapshot reads the fields the handshake and subscribe requests need
// under one lock acquisition.
func (s *SignalerState) snapshot() (gsessionid, sid string, rid, aid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GSessionID, s.SID, s.RID, s.AID
}

func (s *SignalerState) setGSessionID(v string) {
	s.mu.Lock()
	s.GSessionID = v
	s.mu.Unlock()
}

func (s *SignalerState) setSID(v string) {
	s.mu.Lock()
	s.SID = v
	s.SessionN = 1
	s.mu.Unlock()
}

func (s *SignalerState) setAID(v int) {
	s.mu.Lock()
	s.AID = v
	s.mu.Unlock()
}

// chooseServer posts the fixed youtube_live_chat_web topic envelope to
// the server-selection endpoint and stores the gsessionid it hands
// back as the sole element of its response array.
func chooseServer(ctx context.Context, client *http.Client, state *SignalerState) error {
	q := url.Values{"key": {state.APIKey}}
	body := fmt.Sprintf(`[[null,null,null,[7,5],null,[["youtube_live_chat_web"],[1],[[["%s"]]]]]]`, state.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signalerChooseServerURL+"?"+q.Encode(), strings.NewReader(body))
	if err != nil {
		return chaterrors.Wrap(chaterrors.KindSignalingHandshake, "building chooseServer request", err)
	}
	req.Header.Set("Content-Type", "application/json+protobuf")

	resp, err := client.Do(req)
	if err != nil {
		return chaterrors.FromHTTPError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return chaterrors.New(chaterrors.KindSignalingHandshake, fmt.Sprintf("chooseServer returned status %d", resp.StatusCode))
	}

	var reply []any
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return chaterrors.Wrap(chaterrors.KindSignalingHandshake, "decoding chooseServer response", err)
	}
	if len(reply) == 0 {
		return chaterrors.New(chaterrors.KindSignalingHandshake, "chooseServer response was empty")
	}
	gsessionid, ok := reply[0].(string)
	if !ok || gsessionid == "" {
		return chaterrors.New(chaterrors.KindSignalingHandshake, "chooseServer response carried no gsessionid")
	}
	state.setGSessionID(gsessionid)
	return nil
}

// initSession binds a session to the gsessionid chooseServer returned.
// The response body is forever-frame-chunked text; its second line
// carries the JSON we care about: a leading status (0 means success)
// and the session id nested one level further in.
func initSession(ctx context.Context, client *http.Client, state *SignalerState) error {
	zx, err := genZX()
	if err != nil {
		return chaterrors.Wrap(chaterrors.KindSignalingHandshake, "generating zx token", err)
	}
	gsessionid, _, rid, aid := state.snapshot()

	q := url.Values{
		"VER":        {"8"},
		"gsessionid": {gsessionid},
		"key":        {state.APIKey},
		"RID":        {strconv.Itoa(rid)},
		"AID":        {strconv.Itoa(aid)},
		"CVER":       {"22"},
		"zx":         {zx},
		"t":          {"1"},
	}
	form := url.Values{
		"count":         {"1"},
		"ofs":           {"0"},
		"req0___data__": {fmt.Sprintf(`[[["1",[null,null,null,[7,5],null,[["youtube_live_chat_web"],[1],[[["%s"]]]],null,null,1],null,3]]]`, state.Topic)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signalerSubscribeURL+"?"+q.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		return chaterrors.Wrap(chaterrors.KindSignalingHandshake, "building init session request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Without this header the subsequent subscribe GET fails with a
	// misleading error; the server silently expects it on the bind POST.
	req.Header.Set("X-WebChannel-Content-Type", "application/json+protobuf")

	resp, err := client.Do(req)
	if err != nil {
		return chaterrors.FromHTTPError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return chaterrors.New(chaterrors.KindSignalingHandshake, fmt.Sprintf("init session returned status %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	var secondLine string
	for i := 0; i < 2 && scanner.Scan(); i++ {
		if i == 1 {
			secondLine = scanner.Text()
		}
	}
	if secondLine == "" {
		return chaterrors.New(chaterrors.KindSignalingHandshake, "init session response had no second line")
	}

	var frame []any
	if err := json.Unmarshal([]byte(secondLine), &frame); err != nil {
		return chaterrors.Wrap(chaterrors.KindSignalingHandshake, "decoding init session response", err)
	}
	if len(frame) == 0 {
		return chaterrors.New(chaterrors.KindSignalingHandshake, "init session response was empty")
	}
	entry, ok := frame[0].([]any)
	if !ok || len(entry) < 2 {
		return chaterrors.New(chaterrors.KindSignalingHandshake, "init session response had an unexpected shape")
	}
	status, ok := entry[0].(float64)
	if !ok || status != 0 {
		return chaterrors.New(chaterrors.KindSignalingHandshake, fmt.Sprintf("init session reported a non-zero status: %v", entry[0]))
	}
	inner, ok := entry[1].([]any)
	if !ok || len(inner) < 2 {
		return chaterrors.New(chaterrors.KindSignalingHandshake, "init session response carried no sid")
	}
	sid, ok := inner[1].(string)
	if !ok || sid == "" {
		return chaterrors.New(chaterrors.KindSignalingHandshake, "init session sid was not a string")
	}

	state.setSID(sid)
	return nil
}

// getSessionStream opens the hanging subscribe GET that the server
// holds open and writes notification chunks to as they arrive.
func getSessionStream(ctx context.Context, client *http.Client, state *SignalerState) (io.ReadCloser, error) {
	zx, err := genZX()
	if err != nil {
		return nil, chaterrors.Wrap(chaterrors.KindSignalingHandshake, "generating zx token", err)
	}
	gsessionid, sid, _, aid := state.snapshot()

	q := url.Values{
		"VER":        {"8"},
		"gsessionid": {gsessionid},
		"key":        {state.APIKey},
		"RID":        {"rpc"},
		"SID":        {sid},
		"AID":        {strconv.Itoa(aid)},
		"CI":         {"0"},
		"TYPE":       {"xmlhttp"},
		"zx":         {zx},
		"t":          {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signalerSubscribeURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, chaterrors.Wrap(chaterrors.KindSignalingHandshake, "building subscribe request", err)
	}
	req.Header.Set("Connection", "keep-alive")

	resp, err := client.Do(req)
	if err != nil {
		return nil, chaterrors.FromHTTPError(err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, chaterrors.New(chaterrors.KindSignalingHandshake, fmt.Sprintf("subscribe returned status %d", resp.StatusCode))
	}
	return resp.Body, nil
}

// SignalerChannel maintains a live push-channel subscription for one
// invalidation topic, waking every reader registered via Subscribe
// whenever a notification chunk arrives. Subscribers receive no
// payload: a wake-up means "refetch the chat RPC," nothing more.
type SignalerChannel struct {
	cfg   *config.SignalingConfig
	http  *config.HTTPConfig
	topic string
	log   *logger.ComponentLogger
	state *SignalerState

	mu          sync.Mutex
	subscribers []chan struct{}
}

func NewSignalerChannel(cfg *config.SignalingConfig, httpCfg *config.HTTPConfig, topic string) *SignalerChannel {
	return &SignalerChannel{
		cfg:   cfg,
		http:  httpCfg,
		topic: topic,
		log:   logger.WithComponent("webchat.signaler"),
		state: &SignalerState{Topic: topic, APIKey: cfg.APIKey},
	}
}

// Subscribe registers a new buffered signal channel that fires once per
// notification chunk received on this topic until ctx is cancelled.
func (s *SignalerChannel) Subscribe(ctx context.Context) <-chan struct{} {
	capacity := s.cfg.BroadcastCapacity
	if capacity < 128 {
		capacity = 128
	}
	ch := make(chan struct{}, capacity)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				break
			}
		}
	}()
	return ch
}

// signal wakes every subscriber. A subscriber whose buffer is already
// full simply misses this notification; it will catch up on the next
// chat-fetch poll regardless, so the drop is harmless.
func (s *SignalerChannel) signal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscribers {
		select {
		case sub <- struct{}{}:
		default:
		}
	}
}

// Run drives the handshake/stream/reset loop until ctx is cancelled.
// It never returns a fatal error on its own: any handshake or read
// failure triggers a bounded-backoff rehandshake, and only ctx
// cancellation ends the loop.
func (s *SignalerChannel) Run(ctx context.Context) {
	client := HangingGETClient(s.http)
	handshakeClient := SharedHTTPClient(s.http)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.state.reset()

		if err := chooseServer(ctx, handshakeClient, s.state); err != nil {
			s.log.Warn("chooseServer failed, retrying", "error", err.Error())
			if !s.sleepBackoff(ctx, &attempt) {
				return
			}
			continue
		}

		if err := initSession(ctx, handshakeClient, s.state); err != nil {
			s.log.Warn("init session failed, retrying", "error", err.Error())
			if !s.sleepBackoff(ctx, &attempt) {
				return
			}
			continue
		}

		body, err := getSessionStream(ctx, client, s.state)
		if err != nil {
			s.log.Warn("subscribe failed, retrying", "error", err.Error())
			if !s.sleepBackoff(ctx, &attempt) {
				return
			}
			continue
		}

		attempt = 0
		s.log.Info("subscribed to signaling topic", "topic", s.topic)
		readErr := s.readForeverFrame(ctx, body)
		body.Close()
		if readErr != nil {
			s.log.Warn("signaling stream ended, rehandshaking", "error", readErr.Error())
		}
	}
}

// readForeverFrame parses Google's length-prefixed chunked frame
// format: each chunk is a decimal byte count on its own line, followed
// by that many bytes of JSON on the next. The JSON is an array whose
// last element's first entry is the new aid.
func (s *SignalerChannel) readForeverFrame(ctx context.Context, body io.Reader) error {
	r := bufio.NewReader(body)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		lengthLine, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		lengthLine = strings.TrimSpace(lengthLine)
		if lengthLine == "" {
			continue
		}
		n, err := strconv.Atoi(lengthLine)
		if err != nil {
			return chaterrors.Wrap(chaterrors.KindDeserialization, "parsing forever-frame chunk length", err)
		}

		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return err
		}

		var frame []any
		if err := json.Unmarshal(chunk, &frame); err != nil {
			s.log.Warn("dropping unparseable forever-frame chunk", "error", err.Error())
			continue
		}
		if len(frame) == 0 {
			continue
		}
		last, ok := frame[len(frame)-1].([]any)
		if !ok || len(last) == 0 {
			s.log.Warn("forever-frame chunk had an unexpected shape")
			continue
		}
		aid, ok := last[0].(float64)
		if !ok {
			s.log.Warn("forever-frame chunk aid was not numeric")
			continue
		}
		s.state.setAID(int(aid))
		s.signal()
	}
}

func (s *SignalerChannel) sleepBackoff(ctx context.Context, attempt *int) bool {
	*attempt++
	delay := time.Duration(*attempt) * 500 * time.Millisecond
	if delay > 10*time.Second {
		delay = 10 * time.Second
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}
