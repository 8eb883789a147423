package main

import "github.com/awesome-gocui/gocui"

func (t *Top) Keybindings() error {
	if err := t.g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, t.quit); err != nil {
		return err
	}
	key, mod := gocui.MustParse("q")
	if err := t.g.SetKeybinding("", key, mod, t.quit); err != nil {
		return err
	}
	return nil
}

func (t *Top) quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
