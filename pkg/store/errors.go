package store

import "fmt"

// wrapUnavailable marks err as a connection-loss failure so callers can
// match it with errors.Is(err, ErrUnavailable) regardless of backend.
func wrapUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store: %s: %w: %v", op, ErrUnavailable, err)
}
