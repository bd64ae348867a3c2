package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// AppUsage sums the duration of window events whose app equals app (case-insensitive).
func AppUsage(events []domain.Event, app string) time.Duration {
	var total time.Duration
	for _, ev := range events {
		name := ev.App()
		if name == "" {
			continue
		}
		if strings.EqualFold(name, app) {
			total += ev.Elapsed()
		}
	}
	return total
}

// DomainUsage sums the duration of web events whose URL (or title, when the
// URL is absent) contains domain, case-insensitively.
func DomainUsage(events []domain.Event, domainName string) time.Duration {
	needle := strings.ToLower(domainName)
	if needle == "" {
		return 0
	}
	var total time.Duration
	for _, ev := range events {
		loc := ev.Location()
		if loc == "" {
			continue
		}
		if strings.Contains(strings.ToLower(loc), needle) {
			total += ev.Elapsed()
		}
	}
	return total
}

// StartOfDay returns local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Aggregator turns tracker events into per-rule usage.
type Aggregator struct {
	tracker      domain.Tracker
	windowPrefix string
	webPrefix    string
	logger       *zap.Logger
}

// NewAggregator creates an aggregator reading window events from buckets
// starting with windowPrefix and web events from buckets starting with webPrefix.
func NewAggregator(tracker domain.Tracker, windowPrefix, webPrefix string, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		tracker:      tracker,
		windowPrefix: windowPrefix,
		webPrefix:    webPrefix,
		logger:       logger,
	}
}

// sourceEvents is the merged event list of every bucket sharing a prefix.
type sourceEvents struct {
	prefix  string
	buckets []string
	events  []domain.Event
}

func (s *sourceEvents) found() bool {
	return s != nil && len(s.buckets) > 0
}

// Collect computes usage in [start, end) for every rule. Each needed bucket is
// fetched once. A missing source yields HasData=false for its rules and a warning.
func (a *Aggregator) Collect(ctx context.Context, rules []domain.LimitRule, start, end time.Time) ([]domain.TargetUsage, []string, error) {
	usage := make([]domain.TargetUsage, 0, len(rules))
	if len(rules) == 0 {
		return usage, nil, nil
	}

	var needWindow, needWeb bool
	for _, r := range rules {
		switch r.Kind {
		case domain.KindApp:
			needWindow = true
		case domain.KindDomain:
			needWeb = true
		}
	}

	buckets, err := a.tracker.ListSources(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tracker sources: %w", err)
	}

	var warnings []string
	var window, web *sourceEvents
	if needWindow {
		window, err = a.fetchSource(ctx, buckets, a.windowPrefix, start, end)
		if err != nil {
			return nil, nil, err
		}
		if !window.found() {
			warnings = append(warnings, fmt.Sprintf("no tracker source matching %q; app limits skipped", a.windowPrefix))
		}
	}
	if needWeb {
		web, err = a.fetchSource(ctx, buckets, a.webPrefix, start, end)
		if err != nil {
			return nil, nil, err
		}
		if !web.found() {
			warnings = append(warnings, fmt.Sprintf("no tracker source matching %q; domain limits skipped", a.webPrefix))
		}
	}

	for _, r := range rules {
		u := domain.TargetUsage{Rule: r}
		switch r.Kind {
		case domain.KindApp:
			if window.found() {
				u.Used = AppUsage(window.events, r.Target)
				u.HasData = true
			}
		case domain.KindDomain:
			if web.found() {
				u.Used = DomainUsage(web.events, r.Target)
				u.HasData = true
			}
		}
		a.logger.Debug("usage computed",
			zap.String("kind", string(r.Kind)),
			zap.String("target", r.Target),
			zap.Duration("used", u.Used),
			zap.Int("limit_minutes", r.LimitMinutes),
			zap.Bool("has_data", u.HasData))
		usage = append(usage, u)
	}

	return usage, warnings, nil
}

// fetchSource concatenates the events of all buckets whose id starts with
// prefix, in sorted bucket id order.
func (a *Aggregator) fetchSource(ctx context.Context, buckets map[string]domain.Bucket, prefix string, start, end time.Time) (*sourceEvents, error) {
	src := &sourceEvents{prefix: prefix, buckets: matchingBuckets(buckets, prefix)}

	for _, id := range src.buckets {
		events, err := a.tracker.FetchEvents(ctx, id, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events from %s: %w", id, err)
		}
		a.logger.Debug("fetched events",
			zap.String("bucket", id),
			zap.Int("count", len(events)))
		src.events = append(src.events, events...)
	}

	return src, nil
}

func matchingBuckets(buckets map[string]domain.Bucket, prefix string) []string {
	if prefix == "" {
		return nil
	}
	var ids []string
	for id := range buckets {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
