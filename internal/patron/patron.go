package patron

import (
	"errors"
	"regexp"
)

// ErrInvalidID is returned when a patron ID is not exactly six digits.
var ErrInvalidID = errors.New("invalid patron ID: must be exactly 6 digits")

var idPattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidID reports whether id is a library card number.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ValidateID returns ErrInvalidID unless id is a library card number.
func ValidateID(id string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}
	return nil
}
