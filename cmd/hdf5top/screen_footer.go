package main

import (
	"fmt"

	"github.com/awesome-gocui/gocui"
)

const FooterName = "Footer"

func createFooter(g *gocui.Gui) (*View, error) {
	maxX, maxY := g.Size()
	return NewView(FooterName, 0, maxY-2, maxX-1, maxY, g, func(v *gocui.View, m *Model) error {
		if m.Error != nil {
			fmt.Fprintf(v, " error: %v", m.Error)
			return nil
		}
		fmt.Fprint(v, " q: quit")
		return nil
	})
}
