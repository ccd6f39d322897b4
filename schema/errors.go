package schema

import "errors"

var (
	// ErrUnknownProvider indicates a provider name that is not supported.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrProviderUnavailable indicates the provider's CLI or browser profile is not available.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrViewMissing indicates a capture that lacks the structural marker of the expected view.
	ErrViewMissing = errors.New("expected view not found in output")
	// ErrResponseTimeout indicates no matching network response was observed in time.
	ErrResponseTimeout = errors.New("timeout waiting for api response")
	// ErrAPIEnvelope indicates the observed API response carried an error envelope.
	ErrAPIEnvelope = errors.New("api returned an error envelope")
	// ErrSessionClosed indicates an operation on a terminated terminal session.
	ErrSessionClosed = errors.New("session closed")
	// ErrConfigMissing indicates required configuration for a collaborator is absent.
	ErrConfigMissing = errors.New("configuration missing")
)
