package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/echa/config"
)

var (
	flags   = flag.NewFlagSet(appName, flag.ContinueOnError)
	errExit = errors.New("exit")

	verbose     bool
	vdebug      bool
	vtrace      bool
	showVersion bool
	configFile  string

	schemaPath string
	iterMode   bool
	colorOut   bool
	statsEvery int
)

func init() {
	flags.Usage = func() {}
	flags.BoolVar(&verbose, "v", false, "be verbose")
	flags.BoolVar(&vdebug, "vv", false, "debug mode")
	flags.BoolVar(&vtrace, "vvv", false, "trace mode")
	flags.BoolVar(&showVersion, "version", false, "show version")
	flags.StringVar(&configFile, "c", "", "read config from `file`")
	flags.StringVar(&schemaPath, "schema", "", "schema document `path` (required)")
	flags.BoolVar(&iterMode, "iter", false, "stream errors one at a time instead of collecting them all")
	flags.BoolVar(&colorOut, "color", false, "colorize output")
	flags.IntVar(&statsEvery, "stats", 0, "print process stats after validating (0 disables)")
}

func loadConfig() error {
	if configFile == "" {
		return nil
	}
	config.SetEnvPrefix(envprefix)
	config.SetConfigName(configFile)
	if err := config.ReadConfigFile(); err != nil {
		return fmt.Errorf("reading config file %q: %w", configFile, err)
	}
	log.Infof("Using config file %s", configFile)
	return nil
}

func parseFlags(args []string) ([]string, error) {
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			fmt.Printf("Usage: %s [flags] tree.json\n", appName)
			fmt.Println("\nFlags")
			flags.PrintDefaults()
			return nil, errExit
		}
		return nil, err
	}

	if showVersion {
		printVersion()
		return nil, errExit
	}

	if err := loadConfig(); err != nil {
		return nil, err
	}

	rest := flags.Args()
	if schemaPath == "" {
		return nil, fmt.Errorf("-schema is required")
	}
	if len(rest) != 1 {
		return nil, fmt.Errorf("expected exactly one tree.json argument, got %d", len(rest))
	}
	return rest, nil
}
