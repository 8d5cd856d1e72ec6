package domain

import "errors"

var (
	ErrAlreadySubscribed    = errors.New("already subscribed")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrUnknownProduct       = errors.New("subscription product does not exist")
	ErrAccountBusy          = errors.New("another subscribe request is in progress for this account")
)
