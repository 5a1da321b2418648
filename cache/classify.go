package cache

import "strings"

// Default key patterns of the ad-analysis frontend.
var (
	DefaultEssentialPatterns = []string{
		"incivus_user_profile",
		"incivus_user_profile_details",
		"incivus_subscription",
		"incivus_ads_used",
		"incivus_auth_token",
	}

	DefaultCleanablePatterns = []string{
		"incivus_analysis_state",
		"incivus_temp_data",
		"incivus_cache_",
		"incivus_old_",
	}
)

// Classification tags a key for eviction purposes.
//
// A key matching neither list is protected from bulk cleanup but can still
// be the victim of an emergency eviction, which only spares essential keys.
type Classification struct {
	Essential bool
	Cleanable bool
}

// Classifier matches keys against two independent substring lists.
type Classifier struct {
	essential []string
	cleanable []string
}

// NewClassifier creates a classifier from essential and cleanable patterns.
func NewClassifier(essential, cleanable []string) *Classifier {
	return &Classifier{
		essential: append([]string(nil), essential...),
		cleanable: append([]string(nil), cleanable...),
	}
}

// DefaultClassifier uses DefaultEssentialPatterns and DefaultCleanablePatterns.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultEssentialPatterns, DefaultCleanablePatterns)
}

// Classify reports which lists key matches.
func (c *Classifier) Classify(key string) Classification {
	return Classification{
		Essential: containsAny(key, c.essential),
		Cleanable: containsAny(key, c.cleanable),
	}
}

// IsEssential is shorthand for Classify(key).Essential.
func (c *Classifier) IsEssential(key string) bool {
	return containsAny(key, c.essential)
}

func containsAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(key, p) {
			return true
		}
	}
	return false
}
