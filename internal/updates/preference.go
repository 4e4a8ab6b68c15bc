package updates

import (
	"context"
	"fmt"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
)

// PreferenceFilter narrows candidate recipients to the users who accept
// "updates" notifications. It holds no mutable state.
type PreferenceFilter struct {
	preferences repositories.PreferenceRepository
}

// NewPreferenceFilter creates a new PreferenceFilter
func NewPreferenceFilter(preferences repositories.PreferenceRepository) *PreferenceFilter {
	return &PreferenceFilter{preferences: preferences}
}

// Allowed returns, in input order, the ids of existing users whose preference
// is not explicitly false
func (f *PreferenceFilter) Allowed(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prefs, err := f.preferences.GetUpdatePreferences(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("load update preferences: %w", err)
	}

	allowed := make([]string, 0, len(candidates))
	for _, id := range candidates {
		pref, found := prefs[id]
		if !found {
			continue
		}
		if pref != nil && !*pref {
			continue
		}
		allowed = append(allowed, id)
	}
	return allowed, nil
}
