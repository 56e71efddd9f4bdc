package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"reservations/internal/facility"
	"reservations/internal/notification"
	"reservations/internal/reservations/validator"
	"reservations/pkg/clock"
	apperrors "reservations/pkg/errors"
	"reservations/pkg/logger"
	"reservations/pkg/model"

	"github.com/google/uuid"
)

// Config is read once by New and never consulted again.
type Config struct {
	Capacities map[string]int
	VIPUsers   []string
}

type Option func(*Coordinator)

func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(co *Coordinator) {
		co.log = l
	}
}

// WithChannel routes cancellation notices to ch. Without it the coordinator
// creates an unbounded channel of its own and closes it in Close.
func WithChannel(ch *notification.Channel) Option {
	return func(co *Coordinator) {
		co.channel = ch
	}
}

// WithRejectPastStart controls whether requests starting before the clock's
// now are invalid. Enabled by default.
func WithRejectPastStart(reject bool) Option {
	return func(co *Coordinator) {
		co.rejectPastStart = reject
	}
}

type FacilityStatus struct {
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Active   []model.Booking `json:"active"`
}

// Coordinator resolves reservation requests against a fixed set of facility
// pools. It holds no booking state of its own beyond transaction records; all
// admission state lives in the pools.
type Coordinator struct {
	pools map[string]*facility.Pool
	// names is sorted; it is the global acquisition order.
	names           []string
	vips            map[string]struct{}
	channel         *notification.Channel
	ownsChannel     bool
	validator       *validator.ReservationValidator
	clock           clock.Clock
	log             *logger.Logger
	rejectPastStart bool

	txs sync.Map // transaction id -> *transaction
}

func New(cfg Config, opts ...Option) (*Coordinator, error) {
	if len(cfg.Capacities) == 0 {
		return nil, errors.New("at least one facility is required")
	}

	c := &Coordinator{
		pools:           make(map[string]*facility.Pool, len(cfg.Capacities)),
		vips:            make(map[string]struct{}, len(cfg.VIPUsers)),
		clock:           clock.NewSystem(),
		log:             logger.Discard(),
		rejectPastStart: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.channel == nil {
		c.channel = notification.NewChannel(notification.WithLogger(c.log))
		c.ownsChannel = true
	}
	c.validator = validator.NewReservationValidator(c.log)

	for _, id := range cfg.VIPUsers {
		c.vips[id] = struct{}{}
	}

	for name, capacity := range cfg.Capacities {
		pool, err := facility.NewPool(name, capacity,
			facility.WithClock(c.clock),
			facility.WithLogger(c.log),
			facility.WithCancelHook(c.onCancel),
		)
		if err != nil {
			return nil, fmt.Errorf("facility %q: %w", name, err)
		}
		c.pools[name] = pool
		c.names = append(c.names, name)
	}
	slices.Sort(c.names)

	c.log.Info("Reservation coordinator initialized",
		"facilities", c.names,
		"vip_users", len(c.vips),
		"reject_past_start", c.rejectPastStart,
	)
	return c, nil
}

// User resolves id to a user with its configured priority.
func (c *Coordinator) User(id string) model.User {
	if _, ok := c.vips[id]; ok {
		return model.User{ID: id, Priority: model.PriorityVIP}
	}
	return model.User{ID: id, Priority: model.PriorityStandard}
}

// Submit resolves req to a terminal outcome. Facilities are admitted one at a
// time in sorted order and a rejection releases everything admitted before
// it, so no caller ever observes part of a transaction. Submit is not
// cancellable: ctx only scopes logging.
func (c *Coordinator) Submit(ctx context.Context, req model.ReservationRequest) model.Outcome {
	txID := uuid.NewString()
	log := c.log.With("transaction_id", txID, "user_id", req.UserID)

	facilities, err := c.checkRequest(&req)
	if err != nil {
		log.InfoContext(ctx, "Reservation rejected", "reason", model.RejectInvalidRequest, "error", err)
		return model.Rejected(txID, model.RejectInvalidRequest, "", err.Error())
	}

	user := c.User(req.UserID)

	var tx *transaction
	bookingTxID := ""
	if len(facilities) > 1 {
		tx = newTransaction(txID)
		c.txs.Store(txID, tx)
		bookingTxID = txID
	}

	admitted := make([]model.Booking, 0, len(facilities))
	var evicted []model.Booking

	for _, name := range facilities {
		res, err := c.pools[name].TryAdmit(facility.Admission{
			User:          user,
			Range:         req.Range,
			TransactionID: bookingTxID,
		})
		if err != nil {
			c.rollback(ctx, log, tx, admitted)
			log.InfoContext(ctx, "Reservation rejected",
				"reason", model.RejectCapacityExceeded,
				"blocking_facility", name,
				"rolled_back", len(admitted),
			)
			return model.Rejected(txID, model.RejectCapacityExceeded, name, "")
		}

		admitted = append(admitted, res.Booking)
		evicted = append(evicted, res.Evicted...)
		if tx != nil {
			tx.add(name, res.Booking.ID)
		}
		c.cascade(ctx, res.Evicted)

		if tx != nil {
			if at, broken := tx.brokenFacility(); broken {
				return c.abandon(ctx, log, tx, admitted, at)
			}
		}
	}

	if tx != nil {
		if !tx.commit() {
			at, _ := tx.brokenFacility()
			return c.abandon(ctx, log, tx, admitted, at)
		}
		state, members := tx.snapshot()
		log.DebugContext(ctx, "Transaction closed", "state", state.String(), "members", len(members))
	}

	log.InfoContext(ctx, "Reservation admitted",
		"priority", user.Priority,
		"facilities", facilities,
		"evicted", len(evicted),
	)
	return model.Admitted(txID, admitted, evicted)
}

// abandon rolls back a pending transaction one of whose members was evicted
// by a concurrent VIP before it could commit.
func (c *Coordinator) abandon(ctx context.Context, log *logger.Logger, tx *transaction, admitted []model.Booking, at string) model.Outcome {
	c.rollback(ctx, log, tx, admitted)
	log.InfoContext(ctx, "Reservation rejected",
		"reason", model.RejectCapacityExceeded,
		"blocking_facility", at,
		"evicted_while_pending", true,
	)
	return model.Rejected(tx.id, model.RejectCapacityExceeded, at, "")
}

func (c *Coordinator) checkRequest(req *model.ReservationRequest) ([]string, error) {
	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}

	facilities := slices.Clone(req.Facilities)
	slices.Sort(facilities)
	facilities = slices.Compact(facilities)

	for _, name := range facilities {
		if _, ok := c.pools[name]; !ok {
			return nil, fmt.Errorf("unknown facility %q", name)
		}
	}

	if c.rejectPastStart && req.Range.Start.Before(c.clock.Now()) {
		return nil, fmt.Errorf("range starts in the past: %s", req.Range.Start.Format(time.RFC3339))
	}
	return facilities, nil
}

// rollback releases every booking admitted so far, one pool at a time.
// Bookings other requests lost to this one's VIP evictions stay cancelled.
func (c *Coordinator) rollback(ctx context.Context, log *logger.Logger, tx *transaction, admitted []model.Booking) {
	for _, b := range admitted {
		if _, err := c.pools[b.Facility].Release(b.ID); err != nil {
			log.WarnContext(ctx, "Rollback found booking already released",
				"facility", b.Facility,
				"booking_id", b.ID,
			)
		}
	}
	if tx != nil {
		tx.rollBack()
		c.txs.Delete(tx.id)
		state, members := tx.snapshot()
		log.DebugContext(ctx, "Transaction closed", "state", state.String(), "members", len(members))
	}
}

// cascade cancels the surviving members of committed transactions that lost
// a member to eviction. It runs after TryAdmit has returned, so no pool lock
// is held while other pools are locked.
func (c *Coordinator) cascade(ctx context.Context, evicted []model.Booking) {
	for _, b := range evicted {
		if b.TransactionID == "" {
			continue
		}
		tx, ok := c.transaction(b.TransactionID)
		if !ok {
			continue
		}
		targets := tx.cascadeTargets()
		if targets == nil {
			continue
		}
		// Every member ends up cancelled, so nothing needs the record any more.
		c.txs.Delete(tx.id)
		for _, m := range targets {
			if m.bookingID == b.ID {
				continue
			}
			if _, ok := c.pools[m.facility].Cancel(m.bookingID, model.ReasonTransactionCascade); ok {
				c.log.InfoContext(ctx, "Transaction member cancelled",
					"transaction_id", tx.id,
					"facility", m.facility,
					"booking_id", m.bookingID,
					"evicted_facility", b.Facility,
				)
			}
		}
	}
}

// onCancel runs under the lock of the pool that cancelled b, which is what
// keeps one user's notices in cancellation order.
func (c *Coordinator) onCancel(b model.Booking, reason model.NotificationReason) {
	n := model.Notification{
		Recipient:     b.User,
		BookingID:     b.ID,
		Facility:      b.Facility,
		Range:         b.Range,
		TransactionID: b.TransactionID,
		Reason:        reason,
		CancelledAt:   c.clock.Now(),
	}
	if err := c.channel.Publish(n); err != nil {
		c.log.Error("Notification delivery fault",
			"booking_id", b.ID,
			"recipient", b.User.ID,
			"facility", b.Facility,
			"error", err,
		)
	}

	if reason == model.ReasonEvicted && b.TransactionID != "" {
		if tx, ok := c.transaction(b.TransactionID); ok {
			tx.markBroken(b.Facility)
		}
	}
}

// Release frees a booking on facilityName. Releasing the same booking twice
// returns a NOT_FOUND app error wrapping facility.ErrAlreadyReleased.
func (c *Coordinator) Release(ctx context.Context, facilityName, bookingID string) error {
	pool, ok := c.pools[facilityName]
	if !ok {
		return apperrors.NotFoundWithID("facility", facilityName)
	}

	b, err := pool.Release(bookingID)
	if err != nil {
		if errors.Is(err, facility.ErrAlreadyReleased) {
			return apperrors.Wrap(err, apperrors.CodeNotFound, "booking not held", http.StatusNotFound).
				WithDetails(map[string]any{"facility": facilityName, "booking_id": bookingID})
		}
		return apperrors.Internal("failed to release booking", err)
	}

	if b.TransactionID != "" {
		if tx, ok := c.transaction(b.TransactionID); ok && tx.released() {
			c.txs.Delete(tx.id)
		}
	}

	c.log.InfoContext(ctx, "Booking released",
		"facility", facilityName,
		"booking_id", bookingID,
		"status", b.Status,
	)
	return nil
}

// Booking returns a booking facilityName still holds, Active or Cancelled.
func (c *Coordinator) Booking(facilityName, bookingID string) (model.Booking, error) {
	pool, ok := c.pools[facilityName]
	if !ok {
		return model.Booking{}, apperrors.NotFoundWithID("facility", facilityName)
	}
	b, ok := pool.Get(bookingID)
	if !ok {
		return model.Booking{}, apperrors.NotFoundWithID("booking", bookingID)
	}
	return b, nil
}

func (c *Coordinator) SubscribeCancellations(userID string) *notification.Subscription {
	return c.channel.Subscribe(userID)
}

// Facilities returns every facility in acquisition order with copies of its
// Active bookings.
func (c *Coordinator) Facilities() []FacilityStatus {
	out := make([]FacilityStatus, 0, len(c.names))
	for _, name := range c.names {
		pool := c.pools[name]
		out = append(out, FacilityStatus{
			Name:     name,
			Capacity: pool.Capacity(),
			Active:   pool.Active(),
		})
	}
	return out
}

// DeliveryFaults exposes the channel's fault counter for readiness checks.
func (c *Coordinator) DeliveryFaults() int64 {
	return c.channel.DeliveryFaults()
}

// Closed reports whether the notification channel stopped accepting
// cancellations.
func (c *Coordinator) Closed() bool {
	return c.channel.Closed()
}

// Close closes the notification channel if the coordinator created it.
func (c *Coordinator) Close(ctx context.Context) error {
	if !c.ownsChannel {
		return nil
	}
	return c.channel.Close(ctx)
}

func (c *Coordinator) transaction(id string) (*transaction, bool) {
	v, ok := c.txs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*transaction), true
}
