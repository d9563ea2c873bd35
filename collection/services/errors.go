package services

// services should wrap any error that can come from their process
//    e.i. http errors should be wrapped
//    and store errors need not be wrapped

import "errors"

var (
	// retrying later could work
	ErrTemporaryNetworkFailure = errors.New("network failure")

	// the page was fetched but is not a timetable export, retrying wouldn't work
	ErrIncorrectAssumption = errors.New("unrecoverable failure")
)
