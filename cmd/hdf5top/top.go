package main

import (
	"context"
	"errors"

	"github.com/awesome-gocui/gocui"

	"github.com/hartzell-stephen-me/hdf5schema/daemon"
)

type Top struct {
	g       *gocui.Gui
	sub     *daemon.Subscriber
	history int
	model   *Model
	views   map[string]*View
}

func NewTop(sub *daemon.Subscriber, history int) (*Top, error) {
	g, err := gocui.NewGui(gocui.Output256, true)
	if err != nil {
		return nil, err
	}
	t := &Top{
		g:       g,
		sub:     sub,
		history: history,
		model:   &Model{},
		views:   make(map[string]*View),
	}
	return t, nil
}

func (t *Top) poll(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			e, err := t.sub.Next()
			if err != nil {
				t.model.Error = err
				t.refresh()
				return
			}
			t.model.push(e, t.history)
			t.refresh()
		}
	}()
}

func (t *Top) refresh() {
	for _, v := range t.views {
		v.Refresh(t.model)
	}
}

func (t *Top) Display(ctx context.Context) error {
	defer t.g.Close()

	t.Layout()
	if err := t.Keybindings(); err != nil {
		return err
	}
	t.poll(ctx)
	if err := t.g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

func (t *Top) Layout() {
	t.g.SetManagerFunc(func(g *gocui.Gui) error {
		hdr, err := createHeader(g, t.sub.Endpoint)
		if err != nil {
			return err
		}
		t.views[hdr.Name] = hdr

		ev, err := createEvents(g)
		if err != nil {
			return err
		}
		t.views[ev.Name] = ev

		ft, err := createFooter(g)
		if err != nil {
			return err
		}
		t.views[ft.Name] = ft
		return nil
	})
}
