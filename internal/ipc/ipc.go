// Package ipc is the local control socket of the daemon: reload the
// catalog, reset a session, ask for status.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
)

const SocketPath = "/tmp/voxnav.sock"

type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

type Reply struct {
	OK   bool   `json:"ok"`
	Info string `json:"info,omitempty"`
}

type Handler func(ControlMessage) Reply

func StartServer(handler Handler) error {
	os.Remove(SocketPath)

	ln, err := net.Listen("unix", SocketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go serve(ln, handler)
	return nil
}

// serve accepts until the listener dies. Timeouts are retried; any other
// error ends the loop rather than spinning on a closed or removed socket.
func serve(ln net.Listener, handler Handler) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return
		}
		go handleConn(conn, handler)
	}
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}
	reply := handler(msg)
	json.NewEncoder(conn).Encode(reply)
}

func Send(cmd, arg string) (Reply, error) {
	conn, err := net.Dial("unix", SocketPath)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd, Arg: arg}); err != nil {
		return Reply{}, err
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}
