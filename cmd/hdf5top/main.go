package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/awesome-gocui/gocui"
	"github.com/echa/config"

	"github.com/hartzell-stephen-me/hdf5schema/daemon"
)

var (
	appDesc = "hdf5top - interactive dashboard for a hdf5validate watch-mode daemon"
	version = "v0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil && err != gocui.ErrQuit {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		endpoint     string
		history      int
		verbose      bool
		debug        bool
		printVersion bool
	)

	fs := flag.NewFlagSet("hdf5top", flag.ContinueOnError)
	fs.StringVar(&endpoint, "endpoint", "tcp://127.0.0.1:5556", "daemon PUB endpoint to subscribe to")
	fs.IntVar(&history, "history", 200, "number of recent events to keep on screen")
	fs.BoolVar(&verbose, "v", false, "be verbose")
	fs.BoolVar(&debug, "vv", false, "debug mode")
	fs.BoolVar(&printVersion, "version", false, "print version info")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: hdf5top [options]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if printVersion {
		fmt.Printf("%s\n%s %s\n", appDesc, version, commit)
		return nil
	}

	switch {
	case debug:
		config.Set("log.level", "debug")
	case verbose:
		config.Set("log.level", "info")
	}
	initLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := &daemon.Subscriber{Endpoint: endpoint}
	if err := sub.Open(ctx); err != nil {
		return fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	defer sub.Close()

	app, err := NewTop(sub, history)
	if err != nil {
		return err
	}
	return app.Display(ctx)
}
