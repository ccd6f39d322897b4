package schema

// CheckRequest asks for the status of the named providers; none means the
// configured defaults.
type CheckRequest struct {
	Providers []ProviderID
}

// CheckResponse carries one status per requested provider, in request order,
// and the diagnostics of providers that were skipped or failed.
type CheckResponse struct {
	Statuses []Status `json:"statuses"`
	Warnings []string `json:"warnings,omitempty"`
}

// Status returns the status recorded for provider.
func (r CheckResponse) Status(provider ProviderID) (Status, bool) {
	for _, st := range r.Statuses {
		if st.Provider == provider {
			return st, true
		}
	}
	return Status{}, false
}
