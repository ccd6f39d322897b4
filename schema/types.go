package schema

// ProviderID identifies an LLM provider account.
type ProviderID string

// Known providers.
const (
	ProviderClaude ProviderID = "claude"
	ProviderGemini ProviderID = "gemini"
	ProviderZai    ProviderID = "zai"
)

// AllProviders lists every supported provider in default check order.
var AllProviders = []ProviderID{ProviderClaude, ProviderGemini, ProviderZai}

// LimitState is the two-valued outcome of a provider check.
type LimitState string

const (
	// StateRateLimited means the account is currently rate limited.
	StateRateLimited LimitState = "rate_limit_exceed"
	// StateAvailable means the account is usable (or its state could not be determined).
	StateAvailable LimitState = "available"
)

// Unknown is the human-readable placeholder for fields that could not be determined.
const Unknown = "Unknown"

// UnknownSkipped is reported when a provider's collaborator is not available.
const UnknownSkipped = "Unknown (skipped)"

// Status is the uniform, per-provider output record.
// ResetAt is epoch milliseconds; zero means the reset instant is unknown.
type Status struct {
	Provider     ProviderID `json:"provider"`
	State        LimitState `json:"status"`
	ResetAt      int64      `json:"resetAt"`
	ResetAtHuman string     `json:"resetAtHuman,omitempty"`
	UsedPercent  *float64   `json:"usedPercent,omitempty"`
}

// Limited reports whether the status marks the provider as rate limited.
func (s Status) Limited() bool {
	return s.State == StateRateLimited
}

// UnknownStatus returns the conservative record used when a check fails.
func UnknownStatus(provider ProviderID) Status {
	return Status{Provider: provider, State: StateAvailable, ResetAtHuman: Unknown}
}

// SkippedStatus returns the record used when a provider cannot run at all.
func SkippedStatus(provider ProviderID) Status {
	return Status{Provider: provider, State: StateAvailable, ResetAtHuman: UnknownSkipped}
}
