package notification

import (
	"context"
	"sync"
	"sync/atomic"

	apperrors "reservations/pkg/errors"
	"reservations/pkg/logger"
	"reservations/pkg/model"
)

// Sink receives a copy of every accepted notification, off the publisher's
// path. Kafka is the production sink.
type Sink interface {
	Deliver(ctx context.Context, n model.Notification) error
}

type Option func(*Channel)

// WithMaxPending bounds every user's mailbox. Zero means unbounded.
func WithMaxPending(n int) Option {
	return func(c *Channel) {
		c.maxPending = n
	}
}

func WithSink(s Sink) Option {
	return func(c *Channel) {
		c.sink = s
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Channel) {
		c.log = l
	}
}

// Channel holds one mailbox per user. Publish appends and never waits on a
// reader; readers block in Subscription.Next until their mailbox is non-empty.
type Channel struct {
	maxPending int
	sink       Sink
	log        *logger.Logger
	faults     atomic.Int64

	mu        sync.Mutex
	closed    bool
	seq       uint64
	mailboxes map[string]*mailbox

	relay *relay
}

// mailbox exists only while it holds notifications or has a waiter.
type mailbox struct {
	items []model.Notification
	// wake is closed and replaced on every append, releasing all waiters.
	wake    chan struct{}
	waiters int
}

func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		log:       logger.Discard(),
		mailboxes: make(map[string]*mailbox),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink != nil {
		c.relay = newRelay(c.sink, c.log, &c.faults)
		go c.relay.run()
	}
	return c
}

// Publish queues n for its recipient. It returns a DELIVERY_FAULT app error
// when the channel is closed or the mailbox is full; reservations must not be
// rolled back because of it.
func (c *Channel) Publish(n model.Notification) error {
	if n.Recipient.ID == "" {
		c.faults.Add(1)
		return apperrors.DeliveryFault("notification has no recipient", ErrEmptyRecipient)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.faults.Add(1)
		return apperrors.DeliveryFault("notification channel is closed", ErrChannelClosed).
			WithDetails(map[string]any{"booking_id": n.BookingID, "recipient": n.Recipient.ID})
	}

	mb := c.mailboxLocked(n.Recipient.ID)
	if c.maxPending > 0 && len(mb.items) >= c.maxPending {
		c.faults.Add(1)
		return apperrors.DeliveryFault("notification mailbox is full", ErrMailboxFull).
			WithDetails(map[string]any{"booking_id": n.BookingID, "recipient": n.Recipient.ID, "max_pending": c.maxPending})
	}

	c.seq++
	n.Sequence = c.seq
	mb.items = append(mb.items, n)
	close(mb.wake)
	mb.wake = make(chan struct{})

	// Still under mu so the relay sees each user's notifications in order.
	if c.relay != nil {
		c.relay.enqueue(n)
	}
	return nil
}

func (c *Channel) Subscribe(userID string) *Subscription {
	return &Subscription{
		channel: c,
		userID:  userID,
		done:    make(chan struct{}),
	}
}

// Pending reports how many notifications wait in userID's mailbox.
func (c *Channel) Pending(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mb, ok := c.mailboxes[userID]; ok {
		return len(mb.items)
	}
	return 0
}

func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// DeliveryFaults counts rejected publishes and failed sink deliveries.
func (c *Channel) DeliveryFaults() int64 {
	return c.faults.Load()
}

// Close stops accepting notifications and wakes every blocked reader. Queued
// notifications can still be drained. If a sink is configured, Close waits for
// the relay to flush until ctx is done.
func (c *Channel) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, mb := range c.mailboxes {
		close(mb.wake)
		mb.wake = make(chan struct{})
	}
	c.mu.Unlock()

	if c.relay != nil {
		return c.relay.stop(ctx)
	}
	return nil
}

func (c *Channel) mailboxLocked(userID string) *mailbox {
	mb, ok := c.mailboxes[userID]
	if !ok {
		mb = &mailbox{wake: make(chan struct{})}
		c.mailboxes[userID] = mb
	}
	return mb
}

// dropIfIdleLocked forgets userID's mailbox once it is drained and nobody
// waits on it.
func (c *Channel) dropIfIdleLocked(userID string, mb *mailbox) {
	if len(mb.items) == 0 && mb.waiters == 0 {
		delete(c.mailboxes, userID)
	}
}

// next pops the head of userID's mailbox. When it is empty and wait is set,
// it registers a waiter and returns the channel to wait on; the caller must
// then call leave. Without wait an empty mailbox returns a nil channel and no
// notification, and no mailbox is created.
func (c *Channel) next(userID string, wait bool) (model.Notification, <-chan struct{}, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mb, ok := c.mailboxes[userID]; ok && len(mb.items) > 0 {
		n := mb.items[0]
		mb.items[0] = model.Notification{}
		mb.items = mb.items[1:]
		c.dropIfIdleLocked(userID, mb)
		return n, nil, true, nil
	}
	if c.closed {
		return model.Notification{}, nil, false, ErrChannelClosed
	}
	if !wait {
		return model.Notification{}, nil, false, nil
	}
	mb := c.mailboxLocked(userID)
	mb.waiters++
	return model.Notification{}, mb.wake, false, nil
}

// leave undoes the waiter registration of a next call that returned a wait
// channel.
func (c *Channel) leave(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mb, ok := c.mailboxes[userID]; ok {
		mb.waiters--
		c.dropIfIdleLocked(userID, mb)
	}
}
