package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// tracker is an analytics service whose account IDs show up in page source.
// When pattern has a capture group, the first group is the ID.
type tracker struct {
	name       string
	pattern    *regexp.Regexp
	confidence float64
}

// trackers are checked in this order. IDs shared between sites point to a
// common operator, so each one becomes an "analytics" relationship.
var trackers = []tracker{
	{name: "google_analytics_ua", pattern: regexp.MustCompile(`\bUA-\d{4,10}-\d{1,4}\b`), confidence: 1},
	{name: "google_analytics_ga4", pattern: regexp.MustCompile(`\bG-[A-Z0-9]{10,12}\b`), confidence: 0.8},
	{name: "google_tag_manager", pattern: regexp.MustCompile(`\bGTM-[A-Z0-9]{6,8}\b`), confidence: 1},
	{name: "google_adsense", pattern: regexp.MustCompile(`\b(?:ca-)?(pub-\d{16})\b`), confidence: 1},
	{name: "facebook_pixel", pattern: regexp.MustCompile(`fbq\s*\(\s*['"]init['"]\s*,\s*['"](\d{15,16})['"]`), confidence: 1},
	{name: "yandex_metrica", pattern: regexp.MustCompile(`\bym\s*\(\s*(\d{8,9})`), confidence: 1},
	{name: "matomo", pattern: regexp.MustCompile(`_paq\.push\s*\(\s*\[\s*['"]setSiteId['"]\s*,\s*['"]?(\d+)['"]?\s*\]`), confidence: 0.9},
	{name: "hotjar", pattern: regexp.MustCompile(`\bhjid\s*:\s*(\d{6,7})`), confidence: 1},
	{name: "amazon_affiliate", pattern: regexp.MustCompile(`\btag=([a-zA-Z0-9\-]+-\d{2})\b`), confidence: 0.7},
}

type analyticsStage struct{ extractStage }

func (s *analyticsStage) Name() string { return StageAnalytics }
func (s *analyticsStage) Active() bool { return s.active() }

func (s *analyticsStage) Handle(ctx context.Context) error {
	return s.record(ctx, StageAnalytics, ExtractTrackingIDs(s.in.Page().Source), trackingConfidence)
}

// ExtractTrackingIDs returns the distinct analytics IDs in text as
// "tracker:id" values, in tracker order.
func ExtractTrackingIDs(text string) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, t := range trackers {
		for _, m := range t.pattern.FindAllStringSubmatch(text, -1) {
			id := m[0]
			if len(m) > 1 && m[1] != "" {
				id = m[1]
			}
			value := t.name + ":" + id
			if seen[value] {
				continue
			}
			seen[value] = true
			ids = append(ids, value)
		}
	}
	return ids
}

func trackingConfidence(value string) float64 {
	name, _, _ := strings.Cut(value, ":")
	for _, t := range trackers {
		if t.name == name {
			return t.confidence
		}
	}
	return 1
}
