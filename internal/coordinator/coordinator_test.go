package coordinator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"reservations/internal/facility"
	"reservations/internal/notification"
	"reservations/pkg/clock"
	apperrors "reservations/pkg/errors"
	"reservations/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func hours(start, end int) model.TimeRange {
	return model.TimeRange{
		Start: base.Add(time.Duration(start) * time.Hour),
		End:   base.Add(time.Duration(end) * time.Hour),
	}
}

func request(user string, r model.TimeRange, facilities ...string) model.ReservationRequest {
	return model.ReservationRequest{UserID: user, Facilities: facilities, Range: r}
}

func newCoordinator(t *testing.T, vips []string, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithClock(clock.NewFixed(base))}, opts...)
	c, err := New(Config{
		Capacities: map[string]int{"Room": 2, "Projector": 2},
		VIPUsers:   vips,
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func activeOn(c *Coordinator, name string) []model.Booking {
	return c.pools[name].Active()
}

func activeUsers(c *Coordinator, name string) []string {
	var users []string
	for _, b := range activeOn(c, name) {
		users = append(users, b.User.ID)
	}
	return users
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Capacities: map[string]int{"Room": 0}})
	assert.ErrorIs(t, err, facility.ErrInvalidCapacity)
}

func TestNew_RejectsUnbookableFacilityNames(t *testing.T) {
	for _, name := range []string{"Salão", "Room#2", "Sala Magna/1", " Room", "-Room"} {
		t.Run(name, func(t *testing.T) {
			_, err := New(Config{Capacities: map[string]int{name: 2}})
			assert.ErrorIs(t, err, facility.ErrInvalidName)
		})
	}
}

func TestNew_EveryConfiguredFacilityIsBookable(t *testing.T) {
	names := []string{"Board Room", "Lab_2", "Hall.A", "Studio-9"}
	capacities := make(map[string]int, len(names))
	for _, n := range names {
		capacities[n] = 1
	}

	c, err := New(Config{Capacities: capacities}, WithClock(clock.NewFixed(base)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	out := c.Submit(context.Background(), request("A", hours(1, 2), names...))
	require.True(t, out.IsAdmitted(), "%+v", out)
	assert.Len(t, out.Bookings, len(names))
}

func TestUser_Priority(t *testing.T) {
	c := newCoordinator(t, []string{"D"})
	assert.True(t, c.User("D").IsVIP())
	assert.False(t, c.User("A").IsVIP())
}

func TestScenario_StandardUsersFillRoom(t *testing.T) {
	c := newCoordinator(t, nil)
	ctx := context.Background()

	a := c.Submit(ctx, request("A", hours(1, 2), "Room"))
	require.True(t, a.IsAdmitted())
	require.Len(t, a.Bookings, 1)

	b := c.Submit(ctx, request("B", hours(1, 2), "Room"))
	require.True(t, b.IsAdmitted())

	cOut := c.Submit(ctx, request("C", hours(1, 2), "Room"))
	assert.False(t, cOut.IsAdmitted())
	assert.Equal(t, model.RejectCapacityExceeded, cOut.Reason)
	assert.Equal(t, "Room", cOut.BlockingFacility)
	assert.True(t, apperrors.HasCode(cOut.Err(), apperrors.CodeCapacityExceeded))

	assert.Equal(t, []string{"A", "B"}, activeUsers(c, "Room"))
}

func TestScenario_VIPEvictsOldestAndNotifies(t *testing.T) {
	c := newCoordinator(t, []string{"D"})
	ctx := context.Background()

	a := c.Submit(ctx, request("A", hours(1, 2), "Room"))
	require.True(t, a.IsAdmitted())
	require.True(t, c.Submit(ctx, request("B", hours(1, 2), "Room")).IsAdmitted())

	d := c.Submit(ctx, request("D", hours(1, 2), "Room"))
	require.True(t, d.IsAdmitted())
	require.Len(t, d.Evicted, 1)
	assert.Equal(t, a.Bookings[0].ID, d.Evicted[0].ID)
	assert.Equal(t, []string{"B", "D"}, activeUsers(c, "Room"))

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := c.SubscribeCancellations("A").Next(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, a.Bookings[0].ID, n.BookingID)
	assert.Equal(t, "Room", n.Facility)
	assert.Equal(t, model.ReasonEvicted, n.Reason)
	assert.Equal(t, base, n.CancelledAt)

	_, ok := c.SubscribeCancellations("B").TryNext()
	assert.False(t, ok, "B was not evicted")
}

func TestScenario_RejectedOnFirstFacilityTouchesNothingElse(t *testing.T) {
	c := newCoordinator(t, []string{"V1", "V2"})
	ctx := context.Background()

	require.True(t, c.Submit(ctx, request("V1", hours(1, 2), "Projector")).IsAdmitted())
	require.True(t, c.Submit(ctx, request("V2", hours(1, 2), "Projector")).IsAdmitted())
	before := activeOn(c, "Room")

	e := c.Submit(ctx, request("E", hours(1, 2), "Room", "Projector"))
	assert.False(t, e.IsAdmitted())
	assert.Equal(t, model.RejectCapacityExceeded, e.Reason)
	assert.Equal(t, "Projector", e.BlockingFacility)
	assert.Equal(t, before, activeOn(c, "Room"))
}

func TestScenario_RejectedOnSecondFacilityRollsBackFirst(t *testing.T) {
	c := newCoordinator(t, []string{"V1", "V2"})
	ctx := context.Background()

	require.True(t, c.Submit(ctx, request("V1", hours(1, 2), "Room")).IsAdmitted())
	require.True(t, c.Submit(ctx, request("V2", hours(1, 2), "Room")).IsAdmitted())

	// Projector sorts first, so it is admitted before Room rejects.
	e := c.Submit(ctx, request("E", hours(1, 2), "Room", "Projector"))
	assert.False(t, e.IsAdmitted())
	assert.Equal(t, "Room", e.BlockingFacility)

	assert.Empty(t, activeOn(c, "Projector"), "Projector's tentative booking must be released")
	_, tracked := c.transaction(e.TransactionID)
	assert.False(t, tracked)

	// The released slot is really free: two more bookings fit.
	require.True(t, c.Submit(ctx, request("F", hours(1, 2), "Projector")).IsAdmitted())
	require.True(t, c.Submit(ctx, request("G", hours(1, 2), "Projector")).IsAdmitted())
}

func TestScenario_TwoVIPsRaceForLastSlot(t *testing.T) {
	for round := 0; round < 50; round++ {
		c := newCoordinator(t, []string{"V0", "V1", "V2"})
		ctx := context.Background()
		require.True(t, c.Submit(ctx, request("V0", hours(1, 2), "Room")).IsAdmitted())

		var wg sync.WaitGroup
		outcomes := make([]model.Outcome, 2)
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				outcomes[i] = c.Submit(ctx, request(fmt.Sprintf("V%d", i+1), hours(1, 2), "Room"))
			}(i)
		}
		close(start)
		wg.Wait()

		admitted := 0
		for _, o := range outcomes {
			if o.IsAdmitted() {
				admitted++
				assert.Empty(t, o.Evicted)
			} else {
				assert.Equal(t, model.RejectCapacityExceeded, o.Reason)
			}
		}
		assert.Equal(t, 1, admitted)
		assert.Len(t, activeOn(c, "Room"), 2)
	}
}

func TestSubmit_InvalidRequests(t *testing.T) {
	c := newCoordinator(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.ReservationRequest
	}{
		{name: "end before start", req: request("A", hours(2, 1), "Room")},
		{name: "empty range", req: request("A", hours(2, 2), "Room")},
		{name: "unknown facility", req: request("A", hours(1, 2), "Room", "Pool")},
		{name: "no facilities", req: request("A", hours(1, 2))},
		{name: "no user", req: request("", hours(1, 2), "Room")},
		{name: "starts in the past", req: request("A", hours(-2, 1), "Room")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Submit(ctx, tt.req)
			assert.False(t, out.IsAdmitted())
			assert.Equal(t, model.RejectInvalidRequest, out.Reason)
			assert.NotEmpty(t, out.Message)
			assert.True(t, apperrors.HasCode(out.Err(), apperrors.CodeInvalidRequest))
		})
	}

	assert.Empty(t, activeOn(c, "Room"))
	assert.Empty(t, activeOn(c, "Projector"))
}

func TestSubmit_PastStartAllowedWhenDisabled(t *testing.T) {
	c := newCoordinator(t, nil, WithRejectPastStart(false))
	assert.True(t, c.Submit(context.Background(), request("A", hours(-2, 1), "Room")).IsAdmitted())
}

func TestSubmit_DuplicateFacilitiesCollapse(t *testing.T) {
	c := newCoordinator(t, nil)

	out := c.Submit(context.Background(), request("A", hours(1, 2), "Room", "Room"))
	require.True(t, out.IsAdmitted())
	require.Len(t, out.Bookings, 1)
	assert.Empty(t, out.Bookings[0].TransactionID, "a single facility is not a transaction")
	assert.Len(t, activeOn(c, "Room"), 1)
}

func TestSubmit_MultiFacilityBookingsInOrder(t *testing.T) {
	c := newCoordinator(t, nil)

	out := c.Submit(context.Background(), request("A", hours(1, 2), "Room", "Projector"))
	require.True(t, out.IsAdmitted())
	require.Len(t, out.Bookings, 2)
	assert.Equal(t, "Projector", out.Bookings[0].Facility)
	assert.Equal(t, "Room", out.Bookings[1].Facility)
	for _, b := range out.Bookings {
		assert.Equal(t, out.TransactionID, b.TransactionID)
	}

	tx, ok := c.transaction(out.TransactionID)
	require.True(t, ok)
	state, members := tx.snapshot()
	assert.Equal(t, "committed", state.String())
	assert.Len(t, members, 2)
}

func TestEviction_CascadesToCommittedTransaction(t *testing.T) {
	c, err := New(Config{
		Capacities: map[string]int{"Room": 1, "Projector": 1},
		VIPUsers:   []string{"V"},
	}, WithClock(clock.NewFixed(base)))
	require.NoError(t, err)
	defer c.Close(context.Background())
	ctx := context.Background()

	e := c.Submit(ctx, request("E", hours(1, 2), "Room", "Projector"))
	require.True(t, e.IsAdmitted())

	v := c.Submit(ctx, request("V", hours(1, 2), "Room"))
	require.True(t, v.IsAdmitted())
	require.Len(t, v.Evicted, 1)
	assert.Equal(t, "Room", v.Evicted[0].Facility)

	assert.Empty(t, activeOn(c, "Projector"), "the surviving member is cancelled with its transaction")

	sub := c.SubscribeCancellations("E")
	first, ok := sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, "Room", first.Facility)
	assert.Equal(t, model.ReasonEvicted, first.Reason)

	second, ok := sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, "Projector", second.Facility)
	assert.Equal(t, model.ReasonTransactionCascade, second.Reason)
	assert.Equal(t, e.TransactionID, second.TransactionID)
	assert.Greater(t, second.Sequence, first.Sequence)

	_, tracked := c.transaction(e.TransactionID)
	assert.False(t, tracked, "cascaded transactions are forgotten")
	for _, b := range e.Bookings {
		got, err := c.Booking(b.Facility, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, got.Status)
	}

	// Freed Projector slot is usable again.
	assert.True(t, c.Submit(ctx, request("F", hours(1, 2), "Projector")).IsAdmitted())
}

func TestEviction_BreaksPendingTransaction(t *testing.T) {
	c := newCoordinator(t, []string{"V"})
	ctx := context.Background()

	// Stand in for a request that has admitted Room but not yet committed.
	tx := newTransaction("tx-pending")
	c.txs.Store(tx.id, tx)
	for _, user := range []string{"E", "E2"} {
		res, err := c.pools["Room"].TryAdmit(facility.Admission{
			User:          c.User(user),
			Range:         hours(1, 2),
			TransactionID: tx.id,
		})
		require.NoError(t, err)
		tx.add("Room", res.Booking.ID)
	}

	v := c.Submit(ctx, request("V", hours(1, 2), "Room"))
	require.True(t, v.IsAdmitted())

	at, broken := tx.brokenFacility()
	assert.True(t, broken)
	assert.Equal(t, "Room", at)
	assert.Nil(t, tx.cascadeTargets(), "pending transactions are rolled back by their submitter")
	assert.False(t, tx.commit())
}

func TestRelease(t *testing.T) {
	c := newCoordinator(t, nil)
	ctx := context.Background()

	out := c.Submit(ctx, request("A", hours(1, 2), "Room", "Projector"))
	require.True(t, out.IsAdmitted())

	for _, b := range out.Bookings {
		require.NoError(t, c.Release(ctx, b.Facility, b.ID))
	}
	_, tracked := c.transaction(out.TransactionID)
	assert.False(t, tracked, "fully released transactions are forgotten")

	err := c.Release(ctx, "Room", out.Bookings[1].ID)
	assert.ErrorIs(t, err, facility.ErrAlreadyReleased)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	err = c.Release(ctx, "Pool", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestBooking(t *testing.T) {
	c := newCoordinator(t, nil)
	ctx := context.Background()

	out := c.Submit(ctx, request("A", hours(1, 2), "Room"))
	require.True(t, out.IsAdmitted())
	id := out.Bookings[0].ID

	b, err := c.Booking("Room", id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingActive, b.Status)
	assert.Equal(t, "A", b.User.ID)

	_, err = c.Booking("Projector", id)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = c.Booking("Gym", id)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	require.NoError(t, c.Release(ctx, "Room", id))
	_, err = c.Booking("Room", id)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestNotifications_PerUserOrder(t *testing.T) {
	c := newCoordinator(t, []string{"V1", "V2", "V3", "V4"})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		r := hours(2*i+1, 2*i+2)
		out := c.Submit(ctx, request("A", r, "Room"))
		require.True(t, out.IsAdmitted())
		ids = append(ids, out.Bookings[0].ID)
		require.True(t, c.Submit(ctx, request("B", r, "Room")).IsAdmitted())
	}

	// Evict A's bookings newest first; notices follow cancellation order.
	for i := 3; i >= 0; i-- {
		out := c.Submit(ctx, request(fmt.Sprintf("V%d", i+1), hours(2*i+1, 2*i+2), "Room"))
		require.True(t, out.IsAdmitted())
		require.Len(t, out.Evicted, 1)
	}

	sub := c.SubscribeCancellations("A")
	for i := 3; i >= 0; i-- {
		n, ok := sub.TryNext()
		require.True(t, ok)
		assert.Equal(t, ids[i], n.BookingID)
	}
}

func TestNotifications_DeliveryFaultDoesNotRollBack(t *testing.T) {
	ch := notification.NewChannel(notification.WithMaxPending(1))
	defer ch.Close(context.Background())
	c := newCoordinator(t, []string{"V1", "V2"}, WithChannel(ch))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r := hours(2*i+1, 2*i+2)
		require.True(t, c.Submit(ctx, request("A", r, "Room")).IsAdmitted())
		require.True(t, c.Submit(ctx, request("B", r, "Room")).IsAdmitted())
	}

	require.True(t, c.Submit(ctx, request("V1", hours(1, 2), "Room")).IsAdmitted())
	second := c.Submit(ctx, request("V2", hours(3, 4), "Room"))
	require.True(t, second.IsAdmitted(), "a full mailbox never fails the evicting request")
	require.Len(t, second.Evicted, 1)

	assert.Equal(t, int64(1), c.DeliveryFaults())
	assert.Equal(t, 1, ch.Pending("A"))
}

func TestFacilities_Snapshot(t *testing.T) {
	c := newCoordinator(t, nil)
	require.True(t, c.Submit(context.Background(), request("A", hours(1, 2), "Room")).IsAdmitted())

	snap := c.Facilities()
	require.Len(t, snap, 2)
	assert.Equal(t, "Projector", snap[0].Name)
	assert.Equal(t, 2, snap[0].Capacity)
	assert.Empty(t, snap[0].Active)
	assert.Equal(t, "Room", snap[1].Name)
	require.Len(t, snap[1].Active, 1)
	assert.Equal(t, "A", snap[1].Active[0].User.ID)
}

// Concurrent mixed traffic: capacity holds everywhere and every transaction
// is, at rest, either fully active or not active at all.
func TestSubmit_ConcurrentStress(t *testing.T) {
	names := []string{"Projector", "Room", "Studio"}
	vips := []string{"vip-0", "vip-1", "vip-2"}
	c, err := New(Config{
		Capacities: map[string]int{"Projector": 2, "Room": 3, "Studio": 1},
		VIPUsers:   vips,
	}, WithClock(clock.NewFixed(base)))
	require.NoError(t, err)
	defer c.Close(context.Background())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []model.Outcome
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < 100; i++ {
				user := fmt.Sprintf("user-%d-%d", w, i)
				if rng.Intn(4) == 0 {
					user = vips[rng.Intn(len(vips))]
				}
				var facilities []string
				for _, n := range names {
					if rng.Intn(2) == 0 {
						facilities = append(facilities, n)
					}
				}
				if len(facilities) == 0 {
					facilities = []string{names[rng.Intn(len(names))]}
				}
				start := rng.Intn(6)
				out := c.Submit(context.Background(), request(user, hours(start, start+1+rng.Intn(3)), facilities...))

				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()

				if out.IsAdmitted() && rng.Intn(5) == 0 {
					b := out.Bookings[rng.Intn(len(out.Bookings))]
					_ = c.Release(context.Background(), b.Facility, b.ID)
				}
			}
		}(w)
	}
	wg.Wait()

	for _, name := range names {
		assertCapacity(t, activeOn(c, name), c.pools[name].Capacity())
	}

	active := make(map[string]bool)
	for _, name := range names {
		for _, b := range activeOn(c, name) {
			active[b.ID] = true
			assert.False(t, b.Status == model.BookingCancelled)
		}
	}
	for _, out := range outcomes {
		if !out.IsAdmitted() || len(out.Bookings) < 2 {
			continue
		}
		alive := 0
		for _, b := range out.Bookings {
			if active[b.ID] {
				alive++
			}
		}
		// Releases above may drop single members on purpose, so only a
		// transaction with no released member must be all-or-nothing.
		if released := releasedAny(c, out); !released {
			assert.True(t, alive == 0 || alive == len(out.Bookings),
				"transaction %s has %d of %d members active", out.TransactionID, alive, len(out.Bookings))
		}
	}
}

func releasedAny(c *Coordinator, out model.Outcome) bool {
	for _, b := range out.Bookings {
		if _, ok := c.pools[b.Facility].Get(b.ID); !ok {
			return true
		}
	}
	return false
}

func assertCapacity(t *testing.T, active []model.Booking, capacity int) {
	t.Helper()
	for _, b := range active {
		covering := 0
		for _, other := range active {
			if other.Range.Contains(b.Range.Start) {
				covering++
			}
		}
		if covering > capacity {
			t.Fatalf("instant %s covered by %d bookings, capacity %d", b.Range.Start, covering, capacity)
		}
	}
}
