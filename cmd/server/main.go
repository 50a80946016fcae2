package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"swarm/server/internal/app"
)

func main() {
	configPath := flag.String("config", "", "YAML file layered over the built-in defaults")
	view := flag.Bool("view", false, "draw the match on this terminal while serving")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Options{ConfigPath: *configPath, View: *view}); err != nil {
		log.Fatalf("%v", err)
	}
}
