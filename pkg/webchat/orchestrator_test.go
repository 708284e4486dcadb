package webchat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/chatcast/pkg/config"
	"github.com/killallgit/chatcast/pkg/eventstream"
)

func TestOrchestrator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Orchestrator Suite")
}

// fakeLiveChatServer serves a short, fixed sequence of chat-fetch
// responses so Orchestrator.Stream can be exercised end to end without
// reaching the real innertube endpoint.
func fakeLiveChatServer(responses []string) *httptest.Server {
	var mu sync.Mutex
	i := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(responses) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(responses[i]))
		i++
	}))
}

// rewriteHostTransport redirects every request to target's host,
// letting Fetch's hardcoded innertube URL be exercised against a local
// httptest server instead of the real endpoint.
type rewriteHostTransport struct {
	target *url.URL
}

func (t rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

var _ = Describe("Orchestrator", func() {
	It("dedupes repeated items across fetches and stops at end of continuation", func() {
		first := `{"continuationContents":{"liveChatContinuation":{
			"continuations":[{"timedContinuationData":{"timeoutMs":1,"continuation":"c2"}}],
			"actions":[
				{"addChatItemAction":{"item":{"liveChatViewerEngagementMessageRenderer":{"id":"m1"}}}},
				{"addChatItemAction":{"item":{"liveChatViewerEngagementMessageRenderer":{"id":"m2"}}}}
			]
		}}}`
		second := `{"continuationContents":{"liveChatContinuation":{
			"continuations":[{"timedContinuationData":{"timeoutMs":1,"continuation":"c3"}}],
			"actions":[
				{"addChatItemAction":{"item":{"liveChatViewerEngagementMessageRenderer":{"id":"m2"}}}},
				{"addChatItemAction":{"item":{"liveChatViewerEngagementMessageRenderer":{"id":"m3"}}}}
			]
		}}}`
		third := `{"continuationContents":{"liveChatContinuation":{
			"continuations":[{"playerSeekContinuationData":{"continuation":"done"}}]
		}}}`

		server := fakeLiveChatServer([]string{first, second, third})
		defer server.Close()
		target, err := url.Parse(server.URL)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.Defaults()
		cfg.HTTP.RetryAttempts = 0
		orch := NewOrchestrator(cfg)
		orch.fetch.httpClient = &http.Client{Transport: rewriteHostTransport{target: target}}

		cc := &ChatContext{APIKey: "k", ClientVersion: "v", Continuation: "c1", Status: Live}

		var ids []string
		var mu sync.Mutex
		completed := false
		handler := eventstream.HandlerFunc{
			EventFunc: func(event any) error {
				a := event.(Action)
				mu.Lock()
				ids = append(ids, a.AddChatItem.Item.ID())
				mu.Unlock()
				return nil
			},
			CompleteFunc: func() error {
				completed = true
				return nil
			},
		}

		err = orch.Stream(context.Background(), cc, handler)
		Expect(err).NotTo(HaveOccurred())
		Expect(completed).To(BeTrue())
		Expect(ids).To(Equal([]string{"m1", "m2", "m3"}))
	})
})
