package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/saaskit/authcore/internal/apperrors"
)

// Id is a validated UUID identifier.
// Zero value is not usable: construct through NewId or ParseId only.
type Id struct {
	value string
}

// NewId generates a fresh random identifier
func NewId() Id {
	return Id{value: uuid.NewString()}
}

// ParseId validates raw input and wraps it.
// Surrounding whitespace is trimmed, any hex case accepted.
func ParseId(raw string) (Id, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Id{}, fmt.Errorf("empty input: %w", apperrors.ErrInvalidID)
	}

	if _, err := uuid.Parse(trimmed); err != nil {
		return Id{}, fmt.Errorf("input %q: %w", raw, apperrors.ErrInvalidID)
	}

	return Id{value: trimmed}, nil
}

func (id Id) String() string {
	return id.value
}

func (id Id) IsZero() bool {
	return id.value == ""
}

func (id Id) Equal(other Id) bool {
	return id.value == other.value
}
