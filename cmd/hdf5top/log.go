package main

import (
	"github.com/echa/config"
	logpkg "github.com/echa/log"

	"github.com/hartzell-stephen-me/hdf5schema/daemon"
)

var log = logpkg.NewLogger("TOP ")

func init() {
	config.SetDefault("log.backend", "stdout")
	config.SetDefault("log.flags", "date,time,micro,utc")
	config.SetDefault("log.level", "info")
}

func initLogging() {
	cfg := logpkg.NewConfig()
	cfg.Level = logpkg.ParseLevel(config.GetString("log.level"))
	cfg.Flags = logpkg.ParseFlags(config.GetString("log.flags"))
	cfg.Backend = config.GetString("log.backend")
	logpkg.Init(cfg)
	log = logpkg.NewLogger("TOP ")
	daemon.UseLogger(log)
}
