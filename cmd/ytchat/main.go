// Command ytchat prints a YouTube live stream's chat actions to stdout,
// one JSON object per line, until the continuation chain ends or the
// process is interrupted.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/killallgit/chatcast/pkg/config"
	"github.com/killallgit/chatcast/pkg/eventstream"
	"github.com/killallgit/chatcast/pkg/logger"
	"github.com/killallgit/chatcast/pkg/webchat"
	"github.com/spf13/cobra"
)

var (
	videoID   string
	channelID string
	policy    string
	cfgFile   string
)

var rootCmd = &cobra.Command{
	Use:   "ytchat",
	Short: "Stream a YouTube live chat to stdout",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&videoID, "video", "", "video id to watch")
	rootCmd.Flags().StringVar(&channelID, "channel", "", "channel id to resolve a video from (used when --video is empty)")
	rootCmd.Flags().StringVar(&policy, "policy", "first-live-or-upcoming", "channel search policy: first-live-or-upcoming, latest-live-or-upcoming, first-live, latest-live")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parsePolicy(s string) webchat.ChannelSearchOptions {
	switch s {
	case "latest-live-or-upcoming":
		return webchat.LatestLiveOrUpcoming
	case "first-live":
		return webchat.FirstLive
	case "latest-live":
		return webchat.LatestLive
	default:
		return webchat.DefaultChannelSearchOptions
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := logger.Init(&cfg.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Close()

	if videoID == "" && channelID == "" {
		return fmt.Errorf("one of --video or --channel is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var chatCtx *webchat.ChatContext
	if videoID != "" {
		chatCtx, err = webchat.NewFromLive(ctx, cfg, videoID)
	} else {
		chatCtx, err = webchat.NewFromChannel(ctx, cfg, channelID, parsePolicy(policy))
	}
	if err != nil {
		return fmt.Errorf("resolving chat context: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	handler := eventstream.HandlerFunc{
		EventFunc: func(event any) error {
			return enc.Encode(event)
		},
		CompleteFunc: func() error {
			fmt.Fprintln(os.Stderr, "stream complete")
			return nil
		},
		ErrorFunc: func(err error) {
			fmt.Fprintf(os.Stderr, "stream error: %v\n", err)
		},
	}

	orch := webchat.NewOrchestrator(cfg)
	return orch.Stream(ctx, chatCtx, handler)
}
