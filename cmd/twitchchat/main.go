// Command twitchchat prints a Twitch channel's chat events to stdout,
// one JSON object per line, until the connection drops or the process
// is interrupted.
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
	"github.com/killallgit/chatcast/pkg/twitchchat"
	"github.com/spf13/cobra"
)

var (
	channel  string
	username string
	token    string
	cfgFile  string
)

var rootCmd = &cobra.Command{
	Use:   "twitchchat",
	Short: "Stream a Twitch channel's chat to stdout",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&channel, "channel", "", "channel to join")
	rootCmd.Flags().StringVar(&username, "username", "", "account username (omit for an anonymous, read-only connection)")
	rootCmd.Flags().StringVar(&token, "token", "", "OAuth chat token for username")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.MarkFlagRequired("channel")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
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

	var identity twitchchat.Identity = twitchchat.Anonymous{}
	if username != "" {
		identity = twitchchat.Authenticated{Username: username, Token: token}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	enc := json.NewEncoder(os.Stdout)
	handler := eventstream.HandlerFunc{
		EventFunc: func(event any) error {
			return enc.Encode(event)
		},
		CompleteFunc: func() error {
			fmt.Fprintln(os.Stderr, "connection closed")
			return nil
		},
		ErrorFunc: func(err error) {
			fmt.Fprintf(os.Stderr, "connection error: %v\n", err)
		},
	}

	client := twitchchat.NewClient(identity, channel)
	return client.Run(ctx, handler)
}
