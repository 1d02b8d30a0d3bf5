// Package service holds the error values shared by the domain services.
// Handlers map them onto HTTP status codes.
package service

import "errors"

var (
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyValidated is returned when reviewing a contribution that was already approved.
	ErrAlreadyValidated = errors.New("contribution already validated")
	// ErrChallengeClosed is returned when joining an inactive or ended challenge.
	ErrChallengeClosed = errors.New("challenge is closed")
	// ErrUploadTicket is returned when a media reference was not issued to the submitter.
	ErrUploadTicket = errors.New("invalid upload ticket")
)
