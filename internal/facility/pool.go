package facility

import (
	"slices"
	"sync"

	"reservations/pkg/clock"
	"reservations/pkg/logger"
	"reservations/pkg/model"

	"github.com/google/uuid"
)

// Admission is a single booking attempt against one pool.
type Admission struct {
	User          model.User
	Range         model.TimeRange
	TransactionID string
}

type AdmitResult struct {
	Booking model.Booking
	Evicted []model.Booking
}

// CancelHook is called for every Active->Cancelled transition, while the
// pool's lock is still held. It must not block and must not call back into
// any pool.
type CancelHook func(b model.Booking, reason model.NotificationReason)

type Option func(*Pool)

func WithClock(c clock.Clock) Option {
	return func(p *Pool) {
		p.clock = c
	}
}

func WithCancelHook(h CancelHook) Option {
	return func(p *Pool) {
		p.onCancel = h
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Pool) {
		p.log = l
	}
}

// Pool tracks the Active bookings of one facility and is the only thing that
// mutates them. Every read and write happens under mu.
type Pool struct {
	name     string
	capacity int
	clock    clock.Clock
	onCancel CancelHook
	log      *logger.Logger

	mu  sync.Mutex
	seq uint64
	// active is kept in admission order so eviction can pick the oldest first.
	active   []*model.Booking
	bookings map[string]*model.Booking
	// cancelled stay releasable until their range has ended.
	cancelled []*model.Booking
}

func NewPool(name string, capacity int, opts ...Option) (*Pool, error) {
	if !model.ValidFacilityName(name) {
		return nil, ErrInvalidName
	}
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	p := &Pool{
		name:     name,
		capacity: capacity,
		clock:    clock.NewSystem(),
		log:      logger.Discard(),
		bookings: make(map[string]*model.Booking),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("facility", name)
	return p, nil
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Capacity() int {
	return p.capacity
}

// TryAdmit admits a new booking if fewer than capacity Active bookings
// overlap a.Range. When the facility is full, a VIP evicts the oldest
// overlapping Standard bookings until one slot frees up; if there are not
// enough of them the attempt is rejected and nothing changes.
func (p *Pool) TryAdmit(a Admission) (AdmitResult, error) {
	if !a.Range.Valid() {
		return AdmitResult{}, ErrInvalidRange
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneCancelledLocked()
	overlapping := p.overlappingLocked(a.Range)

	var victims []*model.Booking
	if len(overlapping) >= p.capacity {
		victims = selectVictims(a.User.Priority, overlapping, len(overlapping)-p.capacity+1)
		if victims == nil {
			p.log.Debug("Admission rejected",
				"user_id", a.User.ID,
				"priority", a.User.Priority,
				"overlapping", len(overlapping),
				"capacity", p.capacity,
			)
			return AdmitResult{}, ErrCapacityExceeded
		}
	}

	evicted := make([]model.Booking, 0, len(victims))
	for _, v := range victims {
		p.cancelLocked(v, model.ReasonEvicted)
		evicted = append(evicted, *v)
	}

	p.seq++
	b := &model.Booking{
		ID:            uuid.NewString(),
		User:          a.User,
		Facility:      p.name,
		Range:         a.Range,
		Status:        model.BookingActive,
		TransactionID: a.TransactionID,
		Sequence:      p.seq,
		CreatedAt:     p.clock.Now(),
	}
	p.active = append(p.active, b)
	p.bookings[b.ID] = b

	p.log.Debug("Booking admitted",
		"booking_id", b.ID,
		"user_id", a.User.ID,
		"sequence", b.Sequence,
		"evicted", len(evicted),
	)
	return AdmitResult{Booking: *b, Evicted: evicted}, nil
}

// Release drops a booking whatever its status. Releasing an Active booking
// frees its slot; a second release returns ErrAlreadyReleased and changes
// nothing.
func (p *Pool) Release(bookingID string) (model.Booking, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bookings[bookingID]
	if !ok {
		return model.Booking{}, ErrAlreadyReleased
	}
	delete(p.bookings, bookingID)
	if b.IsActive() {
		p.removeActiveLocked(b.ID)
	} else {
		p.cancelled = slices.DeleteFunc(p.cancelled, func(c *model.Booking) bool { return c.ID == b.ID })
	}
	return *b, nil
}

// Cancel moves an Active booking to Cancelled and fires the cancel hook.
// It reports false if the booking is not held or is already cancelled.
func (p *Pool) Cancel(bookingID string, reason model.NotificationReason) (model.Booking, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bookings[bookingID]
	if !ok || !b.IsActive() {
		return model.Booking{}, false
	}
	p.cancelLocked(b, reason)
	return *b, true
}

func (p *Pool) Get(bookingID string) (model.Booking, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bookings[bookingID]
	if !ok {
		return model.Booking{}, false
	}
	return *b, true
}

// Active returns copies of the Active bookings in admission order.
func (p *Pool) Active() []model.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.Booking, 0, len(p.active))
	for _, b := range p.active {
		out = append(out, *b)
	}
	return out
}

func (p *Pool) overlappingLocked(r model.TimeRange) []*model.Booking {
	var out []*model.Booking
	for _, b := range p.active {
		if b.Range.Overlaps(r) {
			out = append(out, b)
		}
	}
	return out
}

func (p *Pool) cancelLocked(b *model.Booking, reason model.NotificationReason) {
	b.Status = model.BookingCancelled
	p.removeActiveLocked(b.ID)
	p.cancelled = append(p.cancelled, b)

	p.log.Info("Booking cancelled",
		"booking_id", b.ID,
		"user_id", b.User.ID,
		"reason", reason,
	)
	if p.onCancel != nil {
		p.onCancel(*b, reason)
	}
}

// pruneCancelledLocked forgets cancelled bookings whose range has ended.
// Releasing one afterwards reports ErrAlreadyReleased.
func (p *Pool) pruneCancelledLocked() {
	now := p.clock.Now()
	p.cancelled = slices.DeleteFunc(p.cancelled, func(b *model.Booking) bool {
		if b.Range.End.After(now) {
			return false
		}
		delete(p.bookings, b.ID)
		return true
	})
}

func (p *Pool) removeActiveLocked(id string) {
	for i, b := range p.active {
		if b.ID == id {
			p.active = append(p.active[:i], p.active[i+1:]...)
			return
		}
	}
}

// selectVictims picks need bookings the requester may preempt, oldest first.
// It returns nil when there are not enough of them.
func selectVictims(requester model.Priority, overlapping []*model.Booking, need int) []*model.Booking {
	victims := make([]*model.Booking, 0, need)
	for _, b := range overlapping {
		if !requester.Preempts(b.User.Priority) {
			continue
		}
		victims = append(victims, b)
		if len(victims) == need {
			return victims
		}
	}
	return nil
}
