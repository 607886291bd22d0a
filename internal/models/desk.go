package models

import (
	"errors"
	"strings"
)

// DeskIDLength is the number of digits in a desk id.
const DeskIDLength = 10

// Desk validation errors.
var (
	ErrInvalidDeskID = errors.New("desk id must be exactly 10 digits")
)

// ValidateDeskID enforces the 10-digit desk id format without modification.
func ValidateDeskID(id string) error {
	if len(id) != DeskIDLength {
		return ErrInvalidDeskID
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return ErrInvalidDeskID
		}
	}
	return nil
}

// NormalizeDeskID strips phone-style separators and validates the result.
// "(100) 000-0001" normalizes to "1000000001".
func NormalizeDeskID(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case '-', ' ', '(', ')', '.':
			continue
		}
		b.WriteRune(r)
	}
	id := b.String()
	if err := ValidateDeskID(id); err != nil {
		return "", err
	}
	return id, nil
}
