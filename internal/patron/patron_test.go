package patron

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	cases := []struct {
		name string
		id   string
		ok   bool
	}{
		{"six digits", "123456", true},
		{"leading zero", "012345", true},
		{"too short", "12345", false},
		{"too long", "1234567", false},
		{"letters", "12a456", false},
		{"empty", "", false},
		{"blank", " ", false},
		{"signed", "-12345", false},
		{"unicode digits", "١٢٣٤٥٦", false},
		{"trailing newline", "123456\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateID(tc.id)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidID)
			}
		})
	}
}
