// Command watch is a headless client: it joins a room and drives the sync
// engine from stdin commands.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JPKrishna28/yt-sync/internal/adapters/media"
	"github.com/JPKrishna28/yt-sync/internal/adapters/player"
	"github.com/JPKrishna28/yt-sync/internal/adapters/relay"
	"github.com/JPKrishna28/yt-sync/internal/adapters/rtc"
	"github.com/JPKrishna28/yt-sync/internal/app"
	"github.com/JPKrishna28/yt-sync/internal/app/call"
	"github.com/JPKrishna28/yt-sync/internal/config"
	"github.com/JPKrishna28/yt-sync/internal/core"
	"github.com/JPKrishna28/yt-sync/internal/domain"
	"github.com/JPKrishna28/yt-sync/internal/protocol"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	clk := clock.New()
	widget := player.NewHeadless(clk)

	dial := func(ctx context.Context) (core.Relay, error) {
		return relay.Dial(ctx, cfg.RelayURL)
	}

	ctl := app.NewController(cfg, clk, dial, widget, media.Open, rtc.NewFactory(rtc.DefaultConfig()), app.Callbacks{
		OnConnState: func(s app.ConnState) {
			log.Info().Str("conn", s.String()).Msg("connection state")
		},
		OnRoomJoined: func(p protocol.RoomJoined) {
			fmt.Printf("joined room %s as %s (first user: %v)\n", p.RoomID, p.UserID, p.IsFirstUser)
		},
		OnRoomFull: func() {
			fmt.Println("room is full, pick another id")
		},
		OnUsersCount: func(n int) {
			fmt.Printf("users in room: %d/%d\n", n, cfg.RoomCapacity)
		},
		OnChat: func(m domain.ChatMessage) {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.Username, m.Message)
		},
		OnTyping: func(name string, typing bool) {
			if typing {
				fmt.Printf("%s is typing...\n", name)
			}
		},
		OnCallState: func(s call.State) {
			log.Info().Str("call", s.String()).Msg("call state")
		},
	})
	defer ctl.Close()

	if err := ctl.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connect")
	}

	fmt.Println("commands: join <room> | load <videoId> | play | pause | sync | say <msg> | call | hangup | video | audio | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")

		var err error
		switch cmd {
		case "join":
			err = ctl.JoinRoom(domain.RoomID(arg))
		case "load":
			err = ctl.ChangeVideo(arg)
		case "play":
			widget.Play()
			err = ctl.Play(widget.CurrentTime())
		case "pause":
			widget.Pause()
			err = ctl.Pause(widget.CurrentTime())
		case "sync":
			err = ctl.Seek(widget.CurrentTime())
		case "seek":
			var at float64
			if at, err = strconv.ParseFloat(arg, 64); err == nil {
				widget.SeekTo(at)
				err = ctl.Seek(at)
			}
		case "say":
			ctl.Keystroke()
			err = ctl.SendChat(arg)
		case "call":
			err = ctl.StartCall(ctx)
		case "hangup":
			ctl.EndCall()
		case "video":
			var on bool
			if on, err = ctl.ToggleVideo(); err == nil {
				fmt.Printf("video enabled: %v\n", on)
			}
		case "audio":
			var on bool
			if on, err = ctl.ToggleAudio(); err == nil {
				fmt.Printf("audio enabled: %v\n", on)
			}
		case "quit":
			return
		default:
			fmt.Println("unknown command:", cmd)
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}
