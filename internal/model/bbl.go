package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BBL errors.
var (
	// ErrInvalidBBL is returned when a borough-block-lot identifier is malformed.
	ErrInvalidBBL = errors.New("invalid borough-block-lot identifier")
	// ErrEmptyBBL is returned when the identifier is empty.
	ErrEmptyBBL = errors.New("borough-block-lot identifier cannot be empty")
)

// Borough code bounds. NYC borough codes are 1 (Manhattan) through
// 5 (Staten Island). Block and lot ranges follow the Department of
// Finance parcel numbering.
const (
	minBoroCode = 1
	maxBoroCode = 5
	maxBlock    = 99999
	maxLot      = 9999
)

// BBL is an immutable value object identifying one tax parcel by
// borough, block, and lot. It is the key for Property graph nodes.
//
// Design decision: We validate at construction rather than at each use
// site because a BBL flows through every layer of the crawl; catching a
// malformed identifier once, before any network call, keeps the error
// surface at the entry point (invalid input) rather than deep inside a
// round.
type BBL struct {
	boroCode int
	block    int
	lot      int
}

// NewBBL creates a validated BBL from its three components.
func NewBBL(boroCode, block, lot int) (BBL, error) {
	if boroCode < minBoroCode || boroCode > maxBoroCode {
		return BBL{}, fmt.Errorf("%w: borough code %d out of range [1,5]", ErrInvalidBBL, boroCode)
	}
	if block < 1 || block > maxBlock {
		return BBL{}, fmt.Errorf("%w: block %d out of range [1,%d]", ErrInvalidBBL, block, maxBlock)
	}
	if lot < 1 || lot > maxLot {
		return BBL{}, fmt.Errorf("%w: lot %d out of range [1,%d]", ErrInvalidBBL, lot, maxLot)
	}
	return BBL{boroCode: boroCode, block: block, lot: lot}, nil
}

// MustNewBBL creates a BBL or panics if invalid.
// Use only for known-valid identifiers in tests or initialization.
func MustNewBBL(boroCode, block, lot int) BBL {
	b, err := NewBBL(boroCode, block, lot)
	if err != nil {
		panic(err)
	}
	return b
}

// ParseBBL parses a BBL from a string in "boro-block-lot" form.
// Slashes and dots are accepted as separators as well, so "1-123-45",
// "1/123/45", and "1.123.45" all parse to the same value.
func ParseBBL(s string) (BBL, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return BBL{}, ErrEmptyBBL
	}

	normalized := strings.NewReplacer("/", "-", ".", "-").Replace(trimmed)
	parts := strings.Split(normalized, "-")
	if len(parts) != 3 {
		return BBL{}, fmt.Errorf("%w: %q is not in boro-block-lot form", ErrInvalidBBL, s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return BBL{}, fmt.Errorf("%w: %q is not numeric", ErrInvalidBBL, p)
		}
		nums[i] = n
	}

	return NewBBL(nums[0], nums[1], nums[2])
}

// BoroCode returns the borough code (1-5).
func (b BBL) BoroCode() int { return b.boroCode }

// Block returns the tax block number.
func (b BBL) Block() int { return b.block }

// Lot returns the tax lot number.
func (b BBL) Lot() int { return b.lot }

// Key returns the canonical "boro-block-lot" key used for node ids and
// visited-set membership. Two BBLs identify the same parcel exactly when
// their keys are equal.
func (b BBL) Key() string {
	return fmt.Sprintf("%d-%d-%d", b.boroCode, b.block, b.lot)
}

// String returns the canonical key form.
func (b BBL) String() string { return b.Key() }

// PadlessDigits returns the ten-digit Department of Finance form
// (boro + zero-padded block + zero-padded lot), e.g. "1000120034".
// PLUTO and ACRIS key parcels this way.
func (b BBL) PadlessDigits() string {
	return fmt.Sprintf("%d%05d%04d", b.boroCode, b.block, b.lot)
}

// IsZero returns true if this is a zero value (unset) BBL.
func (b BBL) IsZero() bool {
	return b.boroCode == 0 && b.block == 0 && b.lot == 0
}

// Equals returns true if two BBL values identify the same parcel.
func (b BBL) Equals(other BBL) bool {
	return b.boroCode == other.boroCode && b.block == other.block && b.lot == other.lot
}

// BoroughName returns the human-readable borough name for display.
func (b BBL) BoroughName() string {
	switch b.boroCode {
	case 1:
		return "Manhattan"
	case 2:
		return "Bronx"
	case 3:
		return "Brooklyn"
	case 4:
		return "Queens"
	case 5:
		return "Staten Island"
	default:
		return "unknown"
	}
}
