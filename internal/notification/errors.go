package notification

import "errors"

var (
	ErrChannelClosed = errors.New("notification channel closed")

	ErrMailboxFull = errors.New("notification mailbox full")

	ErrSubscriptionClosed = errors.New("subscription closed")

	ErrEmptyRecipient = errors.New("notification recipient cannot be empty")
)
