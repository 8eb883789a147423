package main

import (
	"fmt"

	"github.com/awesome-gocui/gocui"
	"github.com/fatih/color"
)

const EventsName = "Events"

func createEvents(g *gocui.Gui) (*View, error) {
	maxX, maxY := g.Size()
	return NewView(EventsName, 0, 3, maxX-1, maxY-2, g, func(v *gocui.View, m *Model) error {
		ok := color.New(color.FgGreen)
		bad := color.New(color.FgYellow)
		ioerr := color.New(color.FgRed)
		for i := len(m.Events) - 1; i >= 0; i-- {
			e := m.Events[i]
			switch {
			case e.Err != "":
				ioerr.Fprintf(v, "%s  %s\n", e.Path, e.Err)
			case e.Valid:
				ok.Fprintf(v, "%s  valid (%s)\n", e.Path, e.Duration)
			default:
				bad.Fprintf(v, "%s  %d error(s) (%s)\n", e.Path, len(e.Errors), e.Duration)
			}
		}
		if len(m.Events) == 0 {
			fmt.Fprintln(v, "waiting for events...")
		}
		return nil
	})
}
