// Package daemon watches a directory of JSON tree fixtures (see
// tree/jsonfixture) and revalidates each one against a fixed schema
// whenever its mtime changes, publishing an Event over a ZeroMQ PUB
// socket for every revalidation. cmd/hdf5top is the bundled SUB
// client.
package daemon

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree/jsonfixture"
	"github.com/hartzell-stephen-me/hdf5schema/validator"
)

// Watcher polls Dir for changed fixtures and publishes Event messages
// over a PUB socket bound at Endpoint.
type Watcher struct {
	Dir      string
	Endpoint string
	Doc      *schema.Document
	Interval time.Duration // poll period; defaults to time.Second

	sock  zmq4.Socket
	mtime map[string]time.Time
}

// Open binds the PUB socket; call Run afterward to start polling.
func (w *Watcher) Open(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = time.Second
	}
	w.mtime = map[string]time.Time{}
	w.sock = zmq4.NewPub(ctx)
	if err := w.sock.Listen(w.Endpoint); err != nil {
		return err
	}
	log.Infof("daemon: publishing on %s, watching %s", w.Endpoint, w.Dir)
	return nil
}

// Close releases the PUB socket.
func (w *Watcher) Close() error {
	if w.sock == nil {
		return nil
	}
	return w.sock.Close()
}

// Run polls until ctx is cancelled, revalidating any fixture whose
// mtime advanced since the last poll and publishing the result.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

func (w *Watcher) pollOnce() {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		log.Errorf("daemon: reading %s: %v", w.Dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(w.Dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		if last, ok := w.mtime[path]; ok && !info.ModTime().After(last) {
			continue
		}
		w.mtime[path] = info.ModTime()
		w.revalidate(path)
	}
}

func (w *Watcher) revalidate(path string) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("daemon: reading %s: %v", path, err)
		return
	}
	root, err := jsonfixture.Build(data)
	if err != nil {
		w.publish(Event{Path: path, Err: err.Error(), Duration: time.Since(start)})
		return
	}
	errs, err := validator.Validate(root, w.Doc)
	if err != nil {
		w.publish(Event{Path: path, Err: err.Error(), Duration: time.Since(start)})
		return
	}
	w.publish(Event{Path: path, Valid: len(errs) == 0, Errors: errs, Duration: time.Since(start)})
}

func (w *Watcher) publish(e Event) {
	body, err := e.marshal()
	if err != nil {
		log.Errorf("daemon: marshaling event for %s: %v", e.Path, err)
		return
	}
	if err := w.sock.Send(zmq4.NewMsg(body)); err != nil {
		log.Errorf("daemon: publishing event for %s: %v", e.Path, err)
	}
}

// Subscriber is a SUB client for a Watcher's event stream, used by
// cmd/hdf5top.
type Subscriber struct {
	Endpoint string
	sock     zmq4.Socket
}

// Open connects the SUB socket and subscribes to all topics (the
// watcher publishes single-part, unprefixed messages).
func (s *Subscriber) Open(ctx context.Context) error {
	s.sock = zmq4.NewSub(ctx)
	if err := s.sock.Dial(s.Endpoint); err != nil {
		return err
	}
	return s.sock.SetOption(zmq4.OptionSubscribe, "")
}

// Close releases the SUB socket.
func (s *Subscriber) Close() error {
	if s.sock == nil {
		return nil
	}
	return s.sock.Close()
}

// Next blocks for the next published Event.
func (s *Subscriber) Next() (Event, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return Event{}, err
	}
	return unmarshalEvent(msg.Bytes())
}
