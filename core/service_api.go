package core

import (
	"context"

	"pkt.systems/ailimit/schema"
)

// Service is the transport-agnostic API for checking provider rate limits.
type Service interface {
	// Check runs the requested provider checks concurrently. The response
	// holds exactly one status per requested provider; only an invalid
	// request is an error.
	Check(ctx context.Context, req schema.CheckRequest) (schema.CheckResponse, error)
	// Probe reports the availability of every registered provider without
	// running checks. A nil error means available.
	Probe(ctx context.Context) map[schema.ProviderID]error
	// Providers lists the registered providers in registration order.
	Providers() []schema.ProviderID
}
