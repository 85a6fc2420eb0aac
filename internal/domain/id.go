package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseID validates an external string identifier into a store key. Every
// path and RPC parameter goes through here before it reaches the repository.
func ParseID(raw string) (uint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("empty id: %w", ErrInvalidArgument)
	}
	v, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("id %q is not a non-negative integer: %w", raw, ErrInvalidArgument)
	}
	return uint(v), nil
}
