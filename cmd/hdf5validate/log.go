package main

import (
	"os"

	"github.com/echa/config"
	logpkg "github.com/echa/log"

	"github.com/hartzell-stephen-me/hdf5schema/batch"
	"github.com/hartzell-stephen-me/hdf5schema/cache"
	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/validator"
)

var log = logpkg.NewLogger("MAIN")

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
	cfg.Filename = config.GetString("log.filename")
	cfg.FileMode = os.FileMode(config.GetInt("log.filemode"))
	logpkg.Init(cfg)

	log = logpkg.NewLogger("MAIN")
	schema.UseLogger(log)
	validator.UseLogger(log)
	cache.UseLogger(log)
	batch.UseLogger(log)

	switch {
	case vtrace:
		log.SetLevel(logpkg.LevelTrace)
	case vdebug:
		log.SetLevel(logpkg.LevelDebug)
	case verbose:
		log.SetLevel(logpkg.LevelInfo)
	}
}
