package common

import (
	"fmt"

	"github.com/google/uuid"
)

// ParseID validates an opaque record identifier supplied by a client and
// returns its canonical form. Malformed values yield ErrInvalidID.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id.String(), nil
}
