package core

import (
	"time"

	"pkt.systems/pslog"
)

// ServiceDeps captures the providers and optional dependencies for the core service.
type ServiceDeps struct {
	Providers []Provider
	Logger    pslog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}
