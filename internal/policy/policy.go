// Package policy builds the daily limit rules screentime enforces.
// Each configured application or domain becomes one domain.LimitRule.
package policy

import (
	"strings"

	"github.com/eliteGoblin/focusd/screen_time/internal/config"
	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// AppRule creates a rule limiting an application's focused time.
func AppRule(app string, limitMinutes int) domain.LimitRule {
	return domain.LimitRule{
		Kind:         domain.KindApp,
		Target:       strings.TrimSpace(app),
		LimitMinutes: limitMinutes,
	}
}

// DomainRule creates a rule limiting time spent on pages whose URL contains domain.
// closeApp, if set, is terminated alongside the hosts block.
func DomainRule(domainName string, limitMinutes int, closeApp string) domain.LimitRule {
	return domain.LimitRule{
		Kind:         domain.KindDomain,
		Target:       strings.ToLower(strings.TrimSpace(domainName)),
		LimitMinutes: limitMinutes,
		CloseApp:     strings.TrimSpace(closeApp),
	}
}

// FromConfig converts the configured limit tables into rules.
func FromConfig(cfg *config.Config) []domain.LimitRule {
	rules := make([]domain.LimitRule, 0, len(cfg.Apps)+len(cfg.Domains))
	for app, limit := range cfg.Apps {
		rules = append(rules, AppRule(app, limit))
	}
	for d, limit := range cfg.Domains {
		rules = append(rules, DomainRule(d, limit, cfg.CloseApps[d]))
	}
	return rules
}
