package main

import (
	"fmt"

	"github.com/awesome-gocui/gocui"
)

const HeaderName = "Header"

func createHeader(g *gocui.Gui, endpoint string) (*View, error) {
	maxX, _ := g.Size()
	return NewView(HeaderName, 0, 0, maxX-1, 2, g, func(v *gocui.View, m *Model) error {
		fmt.Fprintf(v, " watching %s  |  valid=%d invalid=%d io-error=%d", endpoint, m.Valid, m.Invalid, m.IoErr)
		return nil
	})
}
