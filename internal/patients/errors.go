package patients

import "errors"

var (
	// ErrPatientNotFound is returned when no record matches the lookup.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidName is returned when first or last name is missing.
	ErrInvalidName = errors.New("first and last name are required")

	// ErrMissingContact is returned when both email and phone are missing.
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrEmailTaken is returned when an update would reuse another patient's email.
	ErrEmailTaken = errors.New("email already belongs to another patient")

	// ErrNoChanges is returned by Update when no field was supplied.
	ErrNoChanges = errors.New("no fields to update")
)
