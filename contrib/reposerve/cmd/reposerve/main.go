package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackalope/jackalope.go/contrib/reposerve"
)

func main() {
	config := reposerve.NewConfig()

	flag.StringVar(&config.Listen, "listen", config.Listen, "Address to listen on")
	flag.StringVar(&config.Path, "path", config.Path, "HTTP path of the websocket endpoint")
	flag.StringVar(&config.Backend, "backend", config.Backend, "Backend repository URL (mem://, sqlite://, file://)")
	flag.StringVar(&config.NodeTypes, "node-types", "", "YAML file with node types to register on startup")
	flag.StringVar(&config.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reposerve.Run(ctx, config); err != nil {
		log.Fatal(err)
	}
}
