package domain

import "errors"

var (
	ErrFetch              = errors.New("fetch failed")
	ErrCommit             = errors.New("commit failed")
	ErrPermission         = errors.New("library access denied")
	ErrSessionNotRunning  = errors.New("session is not running")
	ErrItemNotQueued      = errors.New("item is not in the queue")
	ErrItemNotFound       = errors.New("item not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDeadLetterNotFound = errors.New("dead letter not found")
)
