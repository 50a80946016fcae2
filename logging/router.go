package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	metricEventsTotal  = "logging_events_total"
	metricDroppedTotal = "logging_dropped_total"
	metricSinkFailures = "logging_sink_failures_total"
)

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans published events out to every configured sink. Publishing never
// blocks the caller; a full queue drops the event and bumps a counter.
type Router struct {
	cfg      Config
	clock    Clock
	metrics  *Metrics
	queue    chan Event
	workers  []*sinkWorker
	fallback *log.Logger
	fields   map[string]any

	stop     chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
	lastDrop atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(clock Clock, metrics *Metrics, cfg Config, sinks []NamedSink) *Router {
	if clock == nil {
		clock = SystemClock{}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultConfig().BufferSize
	}
	r := &Router{
		cfg:      cfg,
		clock:    clock,
		metrics:  metrics,
		queue:    make(chan Event, size),
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		fields:   cfg.cloneFields(),
		stop:     make(chan struct{}),
	}
	perSink := size
	if perSink > 1024 {
		perSink = 1024
	}
	for _, named := range sinks {
		if named.Sink == nil {
			continue
		}
		r.workers = append(r.workers, &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			events:   make(chan Event, perSink),
			fallback: r.fallback,
			metrics:  metrics,
		})
	}
	r.wg.Add(1 + len(r.workers))
	go r.dispatch()
	for _, w := range r.workers {
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}
	return r
}

func (r *Router) dispatch() {
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
		r.wg.Done()
	}()
	for {
		select {
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.metrics.TelemetryAdd(metricEventsTotal, 1)
	for _, w := range r.workers {
		select {
		case w.events <- cloneEvent(event):
		default:
			r.metrics.TelemetryAdd(metricDroppedTotal, 1)
			r.fallback.Printf("sink %s backlog full, dropping %s", w.name, event.Type)
		}
	}
}

func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped(event)
	}
}

func (r *Router) dropped(event Event) {
	r.metrics.TelemetryAdd(metricDroppedTotal, 1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := r.clock.Now().UnixNano()
	next := r.lastDrop.Load()
	if now >= next && r.lastDrop.CompareAndSwap(next, now+interval.Nanoseconds()) {
		r.fallback.Printf("queue full, dropping %s at tick %d", event.Type, event.Tick)
	}
}

// Close drains queued events into the sinks and closes them.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.metrics.Value(metricEventsTotal),
		DroppedTotal: r.metrics.Value(metricDroppedTotal),
	}
}

func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name      string
	sink      Sink
	events    chan Event
	fallback  *log.Logger
	metrics   *Metrics
	failures  int
	nextRetry time.Time
}

func (w *sinkWorker) run() {
	for event := range w.events {
		if w.failures > 0 {
			if wait := time.Until(w.nextRetry); wait > 0 {
				time.Sleep(wait)
			}
		}
		if err := w.sink.Write(event); err != nil {
			w.failures++
			backoff := time.Duration(1<<min(w.failures, 5)) * 100 * time.Millisecond
			w.nextRetry = time.Now().Add(backoff)
			w.metrics.TelemetryAdd(metricSinkFailures, 1)
			w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, backoff)
			continue
		}
		w.failures = 0
	}
}
