package notification

import (
	"context"
	"iter"
	"sync"

	"reservations/pkg/model"
)

// Subscription reads one user's mailbox. Each queued notification is handed
// to exactly one reader, so two subscriptions for the same user split the
// stream between them. A closed subscription can be replaced by a new one,
// which resumes from whatever is still queued.
type Subscription struct {
	channel   *Channel
	userID    string
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) UserID() string {
	return s.userID
}

// Next blocks until a notification is available, ctx is done, the
// subscription is closed or the channel is closed and drained.
func (s *Subscription) Next(ctx context.Context) (model.Notification, error) {
	for {
		select {
		case <-s.done:
			return model.Notification{}, ErrSubscriptionClosed
		default:
		}

		n, wait, ok, err := s.channel.next(s.userID, true)
		if err != nil {
			return model.Notification{}, err
		}
		if ok {
			return n, nil
		}

		err = s.await(ctx, wait)
		s.channel.leave(s.userID)
		if err != nil {
			return model.Notification{}, err
		}
	}
}

func (s *Subscription) await(ctx context.Context, wait <-chan struct{}) error {
	select {
	case <-wait:
		return nil
	case <-s.done:
		return ErrSubscriptionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many notifications are still queued for the user.
func (s *Subscription) Pending() int {
	return s.channel.Pending(s.userID)
}

// TryNext returns the next queued notification without blocking.
func (s *Subscription) TryNext() (model.Notification, bool) {
	n, _, ok, err := s.channel.next(s.userID, false)
	if err != nil || !ok {
		return model.Notification{}, false
	}
	return n, true
}

// All yields notifications lazily until ctx is done or the subscription or
// channel is closed.
func (s *Subscription) All(ctx context.Context) iter.Seq[model.Notification] {
	return func(yield func(model.Notification) bool) {
		for {
			n, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(n) {
				return
			}
		}
	}
}

func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
