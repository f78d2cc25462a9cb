// The voxnav console: type utterances, read the spoken replies. Talks to
// the daemon's websocket console endpoint as one platform user.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxnav/internal/server"
)

func main() {
	url := cli.StringP("url", "u", "ws://localhost:8094/v1/console", "Console endpoint")
	user := cli.StringP("user", "U", "console", "Platform user id to speak as")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: log.LevelWarn,
	})))

	conn := dial(*url + "?user=" + *user)
	defer conn.Close()

	// First turn with no utterance speaks the main menu.
	say(conn, "")

	in := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for in.Scan() {
		say(conn, in.Text())
		fmt.Print("> ")
	}
}

func dial(url string) *websocket.Conn {
	for attempt := 0; ; attempt++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			return conn
		}
		if attempt >= 5 {
			fmt.Fprintln(os.Stderr, "voxnav-daemon not reachable:", err)
			os.Exit(1)
		}
		time.Sleep(time.Second)
	}
}

func say(conn *websocket.Conn, utterance string) {
	if err := conn.WriteJSON(server.ConsoleMessage{Utterance: utterance}); err != nil {
		log.Error("Failed to send", "err", err)
		os.Exit(1)
	}

	var reply server.ConsoleMessage
	if err := conn.ReadJSON(&reply); err != nil {
		log.Error("Failed to read", "err", err)
		os.Exit(1)
	}
	if reply.Error != "" {
		fmt.Println("!", reply.Error)
		return
	}
	fmt.Println(reply.Spoken)
}
