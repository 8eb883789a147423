package cache

import logpkg "github.com/echa/log"

var log logpkg.Logger = logpkg.Log

func init() {
	DisableLog()
}

// DisableLog disables all package log output.
func DisableLog() {
	log = logpkg.Disabled
}

// UseLogger directs package log output to logger.
func UseLogger(logger logpkg.Logger) {
	log = logger
}
