package domain

import (
	"context"
	"errors"
)

// Geocoder resolves addresses to coordinates and back. Implementations make
// a single provider call per method and never retry.
type Geocoder interface {
	// Ready returns ErrServiceUnavailable when the provider cannot serve calls.
	Ready() error

	// Forward returns the best match for a free-text address, or ErrNotFound.
	Forward(ctx context.Context, address string) (Coordinate, error)

	// Reverse returns the preferred address for a point, or ErrNotFound.
	Reverse(ctx context.Context, c Coordinate) (string, error)
}

// Outcome classifies a geocoding result.
type Outcome string

const (
	OutcomeFound       Outcome = "found"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeFailed      Outcome = "error"
)

// OutcomeOf maps a geocoder error to its result variant.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrServiceUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeFailed
	}
}
