package tenant

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
)

// Unlimited is the sentinel for a limit that does not apply.
const Unlimited = -1

// Limits are the numeric quotas of a tenant.
type Limits struct {
	MaxArticles  int `json:"max_articles"`
	MaxUsers     int `json:"max_users"`
	MaxStorageMB int `json:"max_storage_mb"`
}

// Allows reports whether current is below the limit.
func allows(limit, current int) bool {
	return limit == Unlimited || current < limit
}

// AllowsArticles reports whether one more article fits into the quota.
func (l Limits) AllowsArticles(current int) bool {
	return allows(l.MaxArticles, current)
}

// AllowsUsers reports whether one more user fits into the quota.
func (l Limits) AllowsUsers(current int) bool {
	return allows(l.MaxUsers, current)
}

// LimitsForPlan returns the default quotas of a plan.
func LimitsForPlan(plan Plan) Limits {
	switch plan {
	case PlanPro:
		return Limits{MaxArticles: 10000, MaxUsers: 10, MaxStorageMB: 10000}
	case PlanEnterprise:
		return Limits{MaxArticles: Unlimited, MaxUsers: Unlimited, MaxStorageMB: Unlimited}
	default:
		return Limits{MaxArticles: 100, MaxUsers: 3, MaxStorageMB: 1000}
	}
}

// Settings is the configuration blob stored with each tenant.
type Settings struct {
	Theme        map[string]string `json:"theme"`
	Integrations map[string]bool   `json:"integrations"`
	Features     map[string]bool   `json:"features"`
	Limits       Limits            `json:"limits"`
}

// DefaultSettings returns the settings a tenant starts with on the given plan.
func DefaultSettings(plan Plan) Settings {
	return Settings{
		Theme: map[string]string{"name": "default"},
		Integrations: map[string]bool{
			"analytics":  false,
			"newsletter": false,
			"social":     false,
		},
		Features: map[string]bool{
			"comments":   true,
			"tags":       true,
			"media":      true,
			"scheduling": plan != PlanFree,
		},
		Limits: LimitsForPlan(plan),
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	return Settings{
		Theme:        maps.Clone(s.Theme),
		Integrations: maps.Clone(s.Integrations),
		Features:     maps.Clone(s.Features),
		Limits:       s.Limits,
	}
}

// LimitsPatch changes individual limits; nil fields are left alone.
type LimitsPatch struct {
	MaxArticles  *int `json:"max_articles,omitempty"`
	MaxUsers     *int `json:"max_users,omitempty"`
	MaxStorageMB *int `json:"max_storage_mb,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *LimitsPatch) IsEmpty() bool {
	return p == nil || (p.MaxArticles == nil && p.MaxUsers == nil && p.MaxStorageMB == nil)
}

// SettingsPatch is a partial settings update. Map entries are merged key by
// key into the existing sections; keys not mentioned keep their values.
type SettingsPatch struct {
	Theme        map[string]string `json:"theme,omitempty"`
	Integrations map[string]bool   `json:"integrations,omitempty"`
	Features     map[string]bool   `json:"features,omitempty"`
	Limits       *LimitsPatch      `json:"limits,omitempty"`
}

// Merge applies the patch on a copy of s and returns it.
func (s Settings) Merge(p *SettingsPatch) Settings {
	out := s.Clone()
	if p == nil {
		return out
	}
	out.Theme = mergeMap(out.Theme, p.Theme)
	out.Integrations = mergeMap(out.Integrations, p.Integrations)
	out.Features = mergeMap(out.Features, p.Features)
	if p.Limits != nil {
		if p.Limits.MaxArticles != nil {
			out.Limits.MaxArticles = *p.Limits.MaxArticles
		}
		if p.Limits.MaxUsers != nil {
			out.Limits.MaxUsers = *p.Limits.MaxUsers
		}
		if p.Limits.MaxStorageMB != nil {
			out.Limits.MaxStorageMB = *p.Limits.MaxStorageMB
		}
	}
	return out
}

func mergeMap[V any](dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

// Validate checks the limit values.
func (l Limits) Validate() error {
	for name, v := range map[string]int{
		"max_articles":   l.MaxArticles,
		"max_users":      l.MaxUsers,
		"max_storage_mb": l.MaxStorageMB,
	} {
		if v < Unlimited {
			return &ValidationError{Field: "settings.limits." + name, Reason: fmt.Sprintf("must be %d (unlimited) or non-negative, got %d", Unlimited, v)}
		}
	}
	return nil
}

// Value implements driver.Valuer so settings are stored as JSON text.
func (s Settings) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON and JSONB columns.
func (s *Settings) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = Settings{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into tenant settings", src)
	}

	var decoded Settings
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	*s = decoded
	return nil
}
