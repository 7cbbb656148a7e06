// omd-hook handles one host hook invocation: it reads the request from
// stdin, runs the handler for the event named by its first argument and
// writes the response to stdout. It always exits 0 so a broken install
// never blocks the session.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"

	"github.com/qazz92/oh-my-droid/internal/config"
	"github.com/qazz92/oh-my-droid/internal/hooks"
	"github.com/qazz92/oh-my-droid/internal/logger"
	"github.com/qazz92/oh-my-droid/pkg/types"
)

func main() {
	home, _ := os.UserHomeDir()

	if cfg, err := config.LoadDefault(); err == nil && home != "" {
		closer, err := logger.Setup(cfg.LogDir(), "omd-hook")
		if err == nil {
			defer closer.Close()
		}
	} else {
		log.SetOutput(io.Discard)
	}

	if len(os.Args) < 2 {
		log.Printf("warning: omd-hook called without an event")
		writeSilent()
		return
	}

	event, err := hooks.ParseEvent(os.Args[1])
	if err != nil {
		log.Printf("warning: %v", err)
		writeSilent()
		return
	}

	if err := hooks.NewDispatcher(home).Run(context.Background(), event, os.Stdin, os.Stdout); err != nil {
		log.Printf("warning: %v", err)
	}
}

func writeSilent() {
	_ = json.NewEncoder(os.Stdout).Encode(types.Silent())
}
