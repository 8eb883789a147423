package main

import (
	"errors"

	"github.com/awesome-gocui/gocui"
)

type View struct {
	Name string
	v    *gocui.View
	g    *gocui.Gui
	draw func(v *gocui.View, m *Model) error
}

func NewView(n string, x1, y1, x2, y2 int, g *gocui.Gui, fn func(v *gocui.View, m *Model) error) (*View, error) {
	v, err := g.SetView(n, x1, y1, x2, y2, 0)
	if !errors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	_ = fn(v, &Model{})
	return &View{Name: n, v: v, draw: fn, g: g}, nil
}

func (v *View) Refresh(m *Model) {
	v.g.UpdateAsync(func(g *gocui.Gui) error {
		v.v.Clear()
		return v.draw(v.v, m)
	})
}

func (v *View) View() *gocui.View {
	return v.v
}
