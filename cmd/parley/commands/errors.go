package commands

import (
	"errors"
	"fmt"

	"parley/internal/domain"
)

// friendly rewraps service errors whose remedy is a user action, so
// the CLI says what to do instead of printing a bare sentinel.
func friendly(err error) error {
	if errors.Is(err, domain.ErrMissingRoomKey) {
		return fmt.Errorf("%w: import your backup or ask an admin to re-share the key", err)
	}
	return err
}
