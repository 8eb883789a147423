package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree/jsonfixture"
	"github.com/hartzell-stephen-me/hdf5schema/validator"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == errExit {
			return 0
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	initLogging()

	useColor := colorOut && term.IsTerminal(int(os.Stdout.Fd()))
	color.NoColor = !useColor

	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	doc, err := schema.Load(schemaBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("schema error: %v", err))
		return 2
	}

	treeBytes, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	root, err := jsonfixture.Build(treeBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	var errs []validator.ErrorRecord
	if iterMode {
		seq, err := validator.Errors(root, doc)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("schema error: %v", err))
			return 2
		}
		seq(func(e validator.ErrorRecord) bool {
			printError(e)
			errs = append(errs, e)
			return true
		})
	} else {
		errs, err = validator.Validate(root, doc)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("schema error: %v", err))
			return 2
		}
		for _, e := range errs {
			printError(e)
		}
	}

	if statsEvery > 0 {
		printStats()
	}

	if len(errs) > 0 {
		fmt.Printf("%d error(s)\n", len(errs))
		return 1
	}
	fmt.Println(color.GreenString("valid"))
	return 0
}

func printError(e validator.ErrorRecord) {
	fmt.Printf("%s: %s: %s\n", color.YellowString(e.Path), e.Kind, e.Message)
}
