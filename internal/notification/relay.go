package notification

import (
	"context"
	"sync"
	"sync/atomic"

	"reservations/pkg/logger"
	"reservations/pkg/model"
)

// relay forwards accepted notifications to a Sink from a single goroutine so
// a slow sink never reaches Publish.
type relay struct {
	sink   Sink
	log    *logger.Logger
	faults *atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	mu      sync.Mutex
	queue   []model.Notification
	stopped bool
}

func newRelay(sink Sink, log *logger.Logger, faults *atomic.Int64) *relay {
	ctx, cancel := context.WithCancel(context.Background())
	return &relay{
		sink:   sink,
		log:    log,
		faults: faults,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
}

func (r *relay) enqueue(n model.Notification) {
	r.mu.Lock()
	r.queue = append(r.queue, n)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *relay) run() {
	defer close(r.done)

	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			stopped := r.stopped
			r.mu.Unlock()
			if stopped {
				return
			}
			select {
			case <-r.wake:
			case <-r.ctx.Done():
				return
			}
			continue
		}
		n := r.queue[0]
		r.queue[0] = model.Notification{}
		r.queue = r.queue[1:]
		r.mu.Unlock()

		if err := r.sink.Deliver(r.ctx, n); err != nil {
			r.faults.Add(1)
			r.log.Error("Notification delivery fault",
				"booking_id", n.BookingID,
				"recipient", n.Recipient.ID,
				"facility", n.Facility,
				"error", err,
			)
		}
	}
}

// stop lets the relay drain its queue, giving up when ctx is done.
func (r *relay) stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}

	select {
	case <-r.done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-r.done
		r.mu.Lock()
		dropped := len(r.queue)
		r.mu.Unlock()
		if dropped > 0 {
			r.faults.Add(int64(dropped))
			r.log.Warn("Notification relay stopped with undelivered notifications", "dropped", dropped)
		}
		return ctx.Err()
	}
}
