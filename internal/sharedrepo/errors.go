package sharedrepo

import "errors"

var (
	// ErrCloneFailed is returned when no clone URL candidate succeeded.
	ErrCloneFailed = errors.New("clone failed")
	// ErrCheckoutVerificationFailed is returned when HEAD does not name the
	// requested commit after every checkout attempt.
	ErrCheckoutVerificationFailed = errors.New("checkout verification failed")
)
