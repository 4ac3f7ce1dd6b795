package service

import "errors"

var (
	// ErrValidation: a required form field is missing. Reported as 400.
	ErrValidation = errors.New("all fields are required")
	// ErrHashing: the hashing primitive failed before anything was stored.
	ErrHashing = errors.New("error hashing emails")
	// ErrPersistence: the referral could not be written.
	ErrPersistence = errors.New("error saving referral")
	// ErrMailDelivery: the referee notification was not delivered. Never
	// surfaced to the submitter.
	ErrMailDelivery = errors.New("error sending referral email")
)
