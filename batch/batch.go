// Package batch runs many independent validator.Validate calls
// concurrently over a fixed pool of worker goroutines fed by a job
// channel. Each Job owns its own tree.Node, so no single-threaded
// validator.Validate walk is ever shared across goroutines.
package batch

import (
	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
	"github.com/hartzell-stephen-me/hdf5schema/validator"
)

// Job is one independent tree+schema pair to validate.
type Job struct {
	Name string
	Tree tree.Node
	Doc  *schema.Document
	done chan Result
}

// Result is a Job's outcome: either a list of data errors or a schema
// error that aborted that one validation (other jobs are unaffected).
type Result struct {
	Name string
	Errs []validator.ErrorRecord
	Err  error
}

type worker struct {
	pool chan chan *Job
	jobs chan *Job
	quit chan bool
}

func newWorker(pool chan chan *Job) *worker {
	return &worker{pool: pool, jobs: make(chan *Job), quit: make(chan bool)}
}

func (w *worker) start() {
	go func() {
		for {
			w.pool <- w.jobs
			select {
			case job := <-w.jobs:
				errs, err := validator.Validate(job.Tree, job.Doc)
				job.done <- Result{Name: job.Name, Errs: errs, Err: err}
			case <-w.quit:
				return
			}
		}
	}()
}

func (w *worker) stop() {
	go func() { w.quit <- true }()
}

// Dispatcher distributes Jobs from an internal queue to a fixed pool
// of workers, following server.Dispatcher's pool-of-worker-channels
// shape.
type Dispatcher struct {
	queue   chan *Job
	pool    chan chan *Job
	workers []*worker
}

// NewDispatcher starts numWorkers goroutines backed by a queue of
// capacity queueSize.
func NewDispatcher(numWorkers, queueSize int) *Dispatcher {
	d := &Dispatcher{
		queue: make(chan *Job, queueSize),
		pool:  make(chan chan *Job, numWorkers),
	}
	for i := 0; i < numWorkers; i++ {
		w := newWorker(d.pool)
		w.start()
		d.workers = append(d.workers, w)
	}
	go d.dispatch()
	return d
}

func (d *Dispatcher) dispatch() {
	for job := range d.queue {
		jobs := <-d.pool
		jobs <- job
	}
}

// Submit enqueues a job and returns a channel that receives its
// single Result once a worker has processed it.
func (d *Dispatcher) Submit(name string, t tree.Node, doc *schema.Document) <-chan Result {
	job := &Job{Name: name, Tree: t, Doc: doc, done: make(chan Result, 1)}
	d.queue <- job
	return job.done
}

// Stop signals every worker to exit after its current job, if any.
// Submit must not be called again after Stop.
func (d *Dispatcher) Stop() {
	close(d.queue)
	for _, w := range d.workers {
		w.stop()
	}
}

// Run validates every job concurrently across numWorkers goroutines
// and returns once all results are collected, in submission order.
func Run(jobs []Job, numWorkers int) []Result {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if numWorkers > len(jobs) && len(jobs) > 0 {
		numWorkers = len(jobs)
	}
	d := NewDispatcher(numWorkers, len(jobs))
	defer d.Stop()

	chans := make([]<-chan Result, len(jobs))
	for i, j := range jobs {
		chans[i] = d.Submit(j.Name, j.Tree, j.Doc)
	}
	out := make([]Result, len(jobs))
	for i, ch := range chans {
		out[i] = <-ch
	}
	log.Debugf("batch: ran %d jobs across %d workers", len(jobs), numWorkers)
	return out
}
