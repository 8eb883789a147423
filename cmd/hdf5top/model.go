package main

import (
	"time"

	"github.com/hartzell-stephen-me/hdf5schema/daemon"
)

// Model is one rendered snapshot: the ring of recently received events
// plus running tallies, the structural analog of Model.Table in
// cmd/tztop.
type Model struct {
	Time    time.Time
	Events  []daemon.Event
	Valid   int
	Invalid int
	IoErr   int
	Error   error
}

func (m *Model) push(e daemon.Event, history int) {
	m.Time = time.Now()
	switch {
	case e.Err != "":
		m.IoErr++
	case e.Valid:
		m.Valid++
	default:
		m.Invalid++
	}
	m.Events = append(m.Events, e)
	if len(m.Events) > history {
		m.Events = m.Events[len(m.Events)-history:]
	}
}
