package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"voxnav/internal/ipc"
)

func main() {
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: voxnav-ctl <reload|reset|status> [arg]")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	cmd := args[0]
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	reply, err := ipc.Send(cmd, arg)
	if err != nil {
		fmt.Println("voxnav-daemon not running:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Println("error:", reply.Info)
		os.Exit(1)
	}
	fmt.Println(reply.Info)
}
