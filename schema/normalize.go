package schema

import (
	"fmt"
	"strings"
)

// NormalizeProviderID validates and normalizes a provider name.
func NormalizeProviderID(name string) (ProviderID, error) {
	trimmed := ProviderID(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllProviders {
		if trimmed == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// NormalizeProviders validates a provider list. An empty list selects all providers.
// Duplicates are dropped while preserving first-seen order.
func NormalizeProviders(names []string) ([]ProviderID, error) {
	if len(names) == 0 {
		return append([]ProviderID(nil), AllProviders...), nil
	}
	out := make([]ProviderID, 0, len(names))
	seen := make(map[ProviderID]struct{}, len(names))
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := NormalizeProviderID(part)
			if err != nil {
				return nil, err
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return append([]ProviderID(nil), AllProviders...), nil
	}
	return out, nil
}
