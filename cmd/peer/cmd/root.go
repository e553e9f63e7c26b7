package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Davy-M/chat-app/internal/adapters/rtc"
	"github.com/Davy-M/chat-app/internal/client"
	"github.com/Davy-M/chat-app/internal/core"
)

var (
	serverURL  string
	username   string
	iceServers []string
	broadcast  bool
	verbose    bool
)

// rootCmd joins a coordinator as a headless peer: it prints presence, chat
// and typing activity, answers watch requests if broadcasting, and watches
// any announced stream. Useful for soak-testing a deployment without a
// browser.
var rootCmd = &cobra.Command{
	Use:   "peer",
	Short: "Headless chat-app peer for testing a coordinator deployment",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "ws://localhost:8080/api/ws/signal", "coordinator signaling URL")
	rootCmd.Flags().StringVarP(&username, "name", "n", "", "display name (defaults to peer-<pid>)")
	rootCmd.Flags().StringSliceVar(&iceServers, "ice", []string{"stun:stun.l.google.com:19302"}, "ICE server addresses")
	rootCmd.Flags().BoolVarP(&broadcast, "broadcast", "b", false, "announce a broadcast after joining")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if username == "" {
		username = fmt.Sprintf("peer-%d", os.Getpid())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := rtc.NewEngine(iceServers)
	c := client.New(serverURL, username, engine, client.Events{
		OnClients: func(names []string) {
			fmt.Printf("online: %s\n", strings.Join(names, ", "))
		},
		OnMessage: func(user, text string) {
			fmt.Printf("<%s> %s\n", user, text)
		},
		OnTyping: func(user string) {
			fmt.Printf("%s is typing...\n", user)
		},
		OnStatus: func(ev core.StatusEvent) {
			fmt.Printf("%s status: video=%v micMuted=%v\n", ev.Username, ev.Video, ev.Mic)
		},
		OnPeerGone: func(id core.SessionID) {
			fmt.Printf("peer %s gone\n", id)
		},
	})

	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	log.Info().Str("sid", string(c.ID())).Str("username", username).Msg("joined coordinator")

	if broadcast {
		c.Peers().StartBroadcast()
		c.UpdateStatus(false, false)
	}

	// Lines typed on stdin are relayed as chat.
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			c.TypingPulse()
			c.SendMessage(line)
		}
	}()

	select {
	case <-ctx.Done():
	case <-c.Done():
	}
	return nil
}

// Execute runs the root command; called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
