package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/api/metrics"
	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes view events to a fixed set of workers sharded by
// resource, so increments for one resource are applied in order. Record never
// blocks: when a shard is full the view is dropped and counted.
type Dispatcher struct {
	workers []chan domain.ViewEvent
	service ports.ViewService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.ViewService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ViewEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ViewEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record enqueues ev on its shard and reports whether it was accepted.
func (d *Dispatcher) Record(ev domain.ViewEvent) bool {
	idx := d.shardIndex(ev)
	select {
	case d.workers[idx] <- ev:
		metrics.ViewQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return true
	default:
		metrics.ViewsDroppedTotal.WithLabelValues(string(ev.Kind)).Inc()
		d.log.Debug().Str("resource_id", ev.ResourceID).Int("worker_id", idx).Msg("view queue full, dropping view")
		return false
	}
}

// shardIndex maps a resource deterministically to a worker index.
func (d *Dispatcher) shardIndex(ev domain.ViewEvent) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ev.Kind))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(ev.ResourceID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ViewEvent) {
	defer d.wg.Done()
	depth := metrics.ViewQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			result := "ok"
			if err := d.service.Process(ctx, ev); err != nil {
				result = "error"
				d.log.Error().Err(err).
					Str("resource_id", ev.ResourceID).
					Str("kind", string(ev.Kind)).
					Int("worker_id", id).
					Msg("view processing failed")
			}
			metrics.ViewsProcessedTotal.WithLabelValues(string(ev.Kind), result).Inc()
		}
	}
}
