package store

import (
	"context"
	"time"
)

// Unavailable stands in when the configured backend cannot be reached at
// startup. Live editing and presence keep working; only saves and loads
// degrade, per the error contract of the room engine.
type Unavailable struct{}

func (Unavailable) Load(context.Context, string) (*Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Save(context.Context, string, string, time.Time) error {
	return ErrUnavailable
}
