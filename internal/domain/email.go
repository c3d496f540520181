package domain

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/saaskit/authcore/internal/apperrors"
)

const maxEmailLength = 255

// Email is a trimmed, lower-cased, syntax-checked address
type Email struct {
	value string
}

func ParseEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, fmt.Errorf("empty input: %w", apperrors.ErrInvalidEmail)
	}
	if len(normalized) > maxEmailLength {
		return Email{}, fmt.Errorf("longer than %d chars: %w", maxEmailLength, apperrors.ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return Email{}, fmt.Errorf("input %q: %w", raw, apperrors.ErrInvalidEmail)
	}

	return Email{value: normalized}, nil
}

func (e Email) String() string {
	return e.value
}

func (e Email) IsZero() bool {
	return e.value == ""
}

func (e Email) Equal(other Email) bool {
	return e.value == other.value
}
