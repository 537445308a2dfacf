package pipeline

import (
	"context"
	"strings"
	"testing"
)

// TestExtractTrackingIDs tests analytics ID extraction.
func TestExtractTrackingIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "google",
			text: `ga('create', 'UA-1234567-1'); gtag('config', 'G-ABCDE12345'); GTM-ABC1234`,
			want: []string{"google_analytics_ua:UA-1234567-1", "google_analytics_ga4:G-ABCDE12345", "google_tag_manager:GTM-ABC1234"},
		},
		{
			name: "adsense with and without prefix",
			text: `data-ad-client="ca-pub-1234567890123456" pub-1234567890123456`,
			want: []string{"google_adsense:pub-1234567890123456"},
		},
		{
			name: "capture groups",
			text: `fbq('init', '123456789012345'); ym(12345678, "init"); _paq.push(['setSiteId', '7']); hjid:1234567`,
			want: []string{"facebook_pixel:123456789012345", "yandex_metrica:12345678", "matomo:7", "hotjar:1234567"},
		},
		{
			name: "amazon tag",
			text: `<a href="https://amazon.com/dp/B0?tag=shop-20">`,
			want: []string{"amazon_affiliate:shop-20"},
		},
		{
			name: "duplicates",
			text: `UA-1234567-1 UA-1234567-1`,
			want: []string{"google_analytics_ua:UA-1234567-1"},
		},
		{name: "none", text: "<p>nothing to see</p>", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractTrackingIDs(tt.text); strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ExtractTrackingIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestAnalyticsStage tests that tracking IDs become relationships.
func TestAnalyticsStage(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	runner := NewRunner(Builtin(Deps{Relations: rec}), nil, WithLogger(quietLogger()))
	source := `<script>gtag('config', 'G-ABCDE12345'); ga('create', 'UA-1234567-1');</script>`
	report := runner.Run(context.Background(), "id-1", nil, resultWithSource("example.onion", source))

	if o, _ := report.Outcome(StageAnalytics); o.Status != StatusOK {
		t.Fatalf("analytics stage status = %s", o.Status)
	}

	confidence := make(map[string]float64)
	for _, r := range rec.rels {
		if r.Type == StageAnalytics {
			confidence[r.Value] = r.Confidence
		}
	}
	if len(confidence) != 2 {
		t.Fatalf("analytics relationships = %v", rec.values(StageAnalytics))
	}
	if c := confidence["google_analytics_ua:UA-1234567-1"]; c != 1 {
		t.Errorf("UA confidence = %v, want 1", c)
	}
	if c := confidence["google_analytics_ga4:G-ABCDE12345"]; c != 0.8 {
		t.Errorf("GA4 confidence = %v, want 0.8", c)
	}
}
