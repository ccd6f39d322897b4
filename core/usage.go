package core

import (
	"context"
	"time"

	"pkt.systems/ailimit/schema"
)

// Provider checks one account's rate limit state.
type Provider interface {
	ID() schema.ProviderID
	// Available probes the collaborator (CLI on PATH, browser profile) without
	// running a check. An error wrapping schema.ErrProviderUnavailable skips
	// the provider.
	Available(ctx context.Context) error
	// Status runs a single check. now anchors relative reset expressions.
	Status(ctx context.Context, now time.Time) (schema.Status, error)
}
