package main

import "fmt"

var (
	appName   = "hdf5validate"
	version   = "v0.1.0"
	commit    = "dev"
	envprefix = "HDF5VALIDATE"
)

func printVersion() {
	fmt.Printf("%s %s (%s)\n", appName, version, commit)
}
