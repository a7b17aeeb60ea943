package service

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrSlugImmutable   = errors.New("campaign slug is immutable")
	ErrMinPayoutNotMet = errors.New("minimum payout amount not met")
	ErrInternal        = errors.New("internal error")
)
