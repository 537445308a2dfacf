package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/darklight/internal/model"
	"github.com/nao1215/darklight/internal/tor"
)

type fakeRecorder struct {
	rels []model.Relationship
	err  error
}

func (f *fakeRecorder) RecordRelationships(_ context.Context, rels []model.Relationship) error {
	f.rels = append(f.rels, rels...)
	return f.err
}

func (f *fakeRecorder) values(kind string) []string {
	out := make([]string, 0)
	for _, r := range f.rels {
		if r.Type == kind {
			out = append(out, r.Value)
		}
	}
	return out
}

type fakeUpdater struct {
	id     int64
	online bool
	at     time.Time
	calls  int
}

func (f *fakeUpdater) MarkCrawled(_ context.Context, id int64, online bool, at time.Time) error {
	f.calls++
	f.id, f.online, f.at = id, online, at
	return nil
}

type fakeMirrors struct {
	byFingerprint map[string][]string
	err           error
}

func (f *fakeMirrors) Add(_ context.Context, fingerprint, domain string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	others := append([]string(nil), f.byFingerprint[fingerprint]...)
	f.byFingerprint[fingerprint] = append(f.byFingerprint[fingerprint], domain)
	return others, nil
}

func onionAddress(t *testing.T, b byte) string {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	addr, err := tor.AddressFromPublicKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return addr
}

func resultWithSource(domain, source string) *model.CrawlResult {
	return &model.CrawlResult{Page: &model.PageCapture{
		URL:    "http://" + domain + "/",
		Domain: domain,
		Source: source,
	}}
}

// TestBuiltinStages runs the built-in stages end to end with fakes.
func TestBuiltinStages(t *testing.T) {
	t.Parallel()

	self := onionAddress(t, 3)
	other := onionAddress(t, 4)
	source := `<html><body>
		contact: Admin@Example.onion, admin@example.onion
		logo: logo@2x.png
		donate: 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa or bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq
		fake: 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb
		links: http://` + self + `/ http://` + other + `/
	</body></html>`

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{}
	upd := &fakeUpdater{}
	mirrors := &fakeMirrors{byFingerprint: map[string][]string{}}

	result := resultWithSource(self, source)
	mirrors.byFingerprint[result.Page.Fingerprint()] = []string{"copy.onion"}

	runner := NewRunner(Builtin(Deps{Relations: rec, Domains: upd, Mirrors: mirrors}), nil,
		WithLogger(quietLogger()), WithClock(func() time.Time { return now }))
	domain := &model.DomainRecord{ID: 42, UUID: "id-1", Netloc: self}

	report := runner.Run(context.Background(), "id-1", domain, result)
	if err := report.Err(); err != nil {
		t.Fatalf("unexpected failures: %v", err)
	}

	if got := rec.values(StageEmail); strings.Join(got, ",") != "admin@example.onion" {
		t.Errorf("emails = %v", got)
	}
	if got := rec.values(StageBitcoin); strings.Join(got, ",") != "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa,bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq" {
		t.Errorf("bitcoin = %v", got)
	}
	if got := rec.values(StageOnion); strings.Join(got, ",") != other {
		t.Errorf("onion = %v, want only %s", got, other)
	}
	if got := rec.values(StageMirror); strings.Join(got, ",") != "copy.onion" {
		t.Errorf("mirror = %v", got)
	}

	for _, r := range rec.rels {
		if r.CrawlID != "id-1" || r.Domain != self || !r.Timestamp.Equal(now) {
			t.Errorf("relationship metadata = %+v", r)
			break
		}
	}

	if upd.calls != 1 || upd.id != 42 || !upd.online || !upd.at.Equal(now) {
		t.Errorf("domain update = %+v", upd)
	}
}

// TestBuiltinStagesInactive tests the conditions that switch stages off.
func TestBuiltinStagesInactive(t *testing.T) {
	t.Parallel()

	t.Run("nil domain skips only the domain stage", func(t *testing.T) {
		t.Parallel()

		rec := &fakeRecorder{}
		runner := NewRunner(Builtin(Deps{Relations: rec, Domains: &fakeUpdater{}}), nil, WithLogger(quietLogger()))
		report := runner.Run(context.Background(), "id-1", nil, resultWithSource("example.onion", "mail me: a@b.cd"))

		if o, _ := report.Outcome(StageDomain); o.Status != StatusSkipped {
			t.Errorf("domain stage status = %s", o.Status)
		}
		if o, _ := report.Outcome(StageEmail); o.Status != StatusOK {
			t.Errorf("email stage status = %s", o.Status)
		}
		if o, _ := report.Outcome(StageMirror); o.Status != StatusSkipped {
			t.Errorf("mirror stage without index = %s", o.Status)
		}
	})

	t.Run("empty result skips extraction stages", func(t *testing.T) {
		t.Parallel()

		rec := &fakeRecorder{}
		runner := NewRunner(Builtin(Deps{Relations: rec, Mirrors: &fakeMirrors{byFingerprint: map[string][]string{}}}), nil, WithLogger(quietLogger()))
		report := runner.Run(context.Background(), "id-1", nil, &model.CrawlResult{})

		for _, o := range report.Outcomes {
			if o.Status != StatusSkipped {
				t.Errorf("stage %s status = %s", o.Name, o.Status)
			}
		}
		if len(rec.rels) != 0 {
			t.Errorf("unexpected relationships: %v", rec.rels)
		}
	})
}

// TestBuiltinStagesFailures tests that collaborator errors become stage failures.
func TestBuiltinStagesFailures(t *testing.T) {
	t.Parallel()

	errDown := errors.New("redis down")
	rec := &fakeRecorder{}
	runner := NewRunner(Builtin(Deps{Relations: rec, Mirrors: &fakeMirrors{err: errDown}}), nil, WithLogger(quietLogger()))
	report := runner.Run(context.Background(), "id-1", nil, resultWithSource("example.onion", "a@b.cd"))

	failed := report.Failed()
	if len(failed) != 1 || failed[0].Name != StageMirror || !errors.Is(failed[0].Err, errDown) {
		t.Errorf("Failed() = %+v", failed)
	}
}

// TestExtractEmails tests e-mail extraction.
func TestExtractEmails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "dedup case-insensitive", text: "Bob@Mail.com bob@mail.com", want: []string{"bob@mail.com"}},
		{name: "skips image names", text: "icon@2x.png hero@3x.webp", want: []string{}},
		{name: "none", text: "no addresses here", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractEmails(tt.text); strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ExtractEmails() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestValidBase58Check tests legacy address checksums.
func TestValidBase58Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", true},
		{"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", true},
		{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", false},
		{"10OIl", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			if got := validBase58Check(tt.addr); got != tt.want {
				t.Errorf("validBase58Check(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}
