package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eliteGoblin/focusd/screen_time/internal/config"
	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// ruleKey identifies a rule; app names compare case-insensitively.
type ruleKey struct {
	kind   domain.RuleKind
	target string
}

func keyFor(kind domain.RuleKind, target string) ruleKey {
	return ruleKey{kind: kind, target: strings.ToLower(strings.TrimSpace(target))}
}

// Registry holds all limit rules in memory.
type Registry struct {
	rules map[ruleKey]domain.LimitRule
}

// NewRegistry creates a registry from the configuration's limit tables.
func NewRegistry(cfg *config.Config) *Registry {
	return NewRegistryWithRules(FromConfig(cfg)...)
}

// NewRegistryWithRules creates a registry with explicit rules (for testing).
func NewRegistryWithRules(rules ...domain.LimitRule) *Registry {
	r := &Registry{rules: make(map[ruleKey]domain.LimitRule)}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Register adds a rule, replacing any rule for the same target.
func (r *Registry) Register(rule domain.LimitRule) {
	r.rules[keyFor(rule.Kind, rule.Target)] = rule
}

// GetAll returns app rules then domain rules, each sorted by target.
func (r *Registry) GetAll() []domain.LimitRule {
	result := make([]domain.LimitRule, 0, len(r.rules))
	for _, rule := range r.rules {
		result = append(result, rule)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind == domain.KindApp
		}
		return strings.ToLower(result[i].Target) < strings.ToLower(result[j].Target)
	})
	return result
}

// GetByTarget returns the rule of the given kind for target.
func (r *Registry) GetByTarget(kind domain.RuleKind, target string) (*domain.LimitRule, error) {
	rule, ok := r.rules[keyFor(kind, target)]
	if !ok {
		return nil, fmt.Errorf("no %s rule for %q", kind, target)
	}
	return &rule, nil
}

// Ensure Registry implements domain.PolicyStore.
var _ domain.PolicyStore = (*Registry)(nil)
