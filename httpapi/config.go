package httpapi

import "time"

// Config defines HTTP status service settings.
type Config struct {
	Addr string
	// CheckTimeout bounds one /v1/limits request. Zero means no bound beyond
	// the per-provider waits.
	CheckTimeout time.Duration
}
