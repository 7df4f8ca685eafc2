package session

import "errors"

var (
	// ErrSessionClosed is returned when recording into a finished session.
	ErrSessionClosed = errors.New("session: closed")

	// ErrSessionOpen is returned when folding a session that has not ended.
	ErrSessionOpen = errors.New("session: still open")

	// ErrCardNotInSession is returned when a review names a card outside the
	// session's queue.
	ErrCardNotInSession = errors.New("session: card not in session")

	// ErrCardAlreadyReviewed is returned when a card is rated a second time
	// within the same session.
	ErrCardAlreadyReviewed = errors.New("session: card already reviewed")
)
