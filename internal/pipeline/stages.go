package pipeline

import (
	"context"
	"time"

	"github.com/nao1215/darklight/internal/model"
)

// Stage names.
const (
	StageDomain    = "domain"
	StageEmail     = "email"
	StageBitcoin   = "bitcoin"
	StageOnion     = "onion"
	StageAnalytics = "analytics"
	StageMirror    = "mirror"
)

// RelationRecorder persists relationships derived from a page.
// docstore.Index implements it.
type RelationRecorder interface {
	RecordRelationships(ctx context.Context, rels []model.Relationship) error
}

// DomainUpdater updates the crawl status of a domain record.
// database.Store implements it.
type DomainUpdater interface {
	MarkCrawled(ctx context.Context, domainID int64, online bool, at time.Time) error
}

// MirrorIndex maps page fingerprints to the domains serving them.
// cache.MirrorIndex implements it.
type MirrorIndex interface {
	// Add records that domain serves fingerprint and returns every other
	// domain known to serve it.
	Add(ctx context.Context, fingerprint, domain string) ([]string, error)
}

// Deps are the collaborators of the built-in stages. A nil dependency
// makes the stages that need it inactive.
type Deps struct {
	Relations RelationRecorder
	Domains   DomainUpdater
	Mirrors   MirrorIndex
}

// Builtin returns the built-in stages in execution order.
func Builtin(deps Deps) []Registration {
	return []Registration{
		{Name: StageDomain, New: func(in Input) Stage { return &domainStage{in: in, updater: deps.Domains} }},
		{Name: StageEmail, New: func(in Input) Stage { return &emailStage{extractStage{in: in, rec: deps.Relations}} }},
		{Name: StageBitcoin, New: func(in Input) Stage { return &bitcoinStage{extractStage{in: in, rec: deps.Relations}} }},
		{Name: StageOnion, New: func(in Input) Stage { return &onionStage{extractStage{in: in, rec: deps.Relations}} }},
		{Name: StageAnalytics, New: func(in Input) Stage { return &analyticsStage{extractStage{in: in, rec: deps.Relations}} }},
		{Name: StageMirror, New: func(in Input) Stage { return &mirrorStage{extractStage{in: in, rec: deps.Relations}, deps.Mirrors} }},
	}
}

// extractStage is the shared part of stages that turn page content into
// relationships.
type extractStage struct {
	in  Input
	rec RelationRecorder
}

func (s *extractStage) active() bool {
	page := s.in.Page()
	return s.rec != nil && page != nil && page.Source != ""
}

func (s *extractStage) domain() string {
	if page := s.in.Page(); page != nil && page.Domain != "" {
		return page.Domain
	}
	if s.in.Domain != nil {
		return s.in.Domain.Netloc
	}
	return ""
}

// record writes one relationship of kind per value. Nothing is written
// when values is empty.
func (s *extractStage) record(ctx context.Context, kind string, values []string, confidence func(string) float64) error {
	if len(values) == 0 {
		return nil
	}
	rels := make([]model.Relationship, len(values))
	for i, v := range values {
		rels[i] = model.Relationship{
			CrawlID:    s.in.ID,
			Domain:     s.domain(),
			Type:       kind,
			Value:      v,
			Confidence: confidence(v),
			Timestamp:  s.in.Now,
		}
	}
	return s.rec.RecordRelationships(ctx, rels)
}

func certain(string) float64 { return 1 }

type domainStage struct {
	in      Input
	updater DomainUpdater
}

func (s *domainStage) Name() string { return StageDomain }

func (s *domainStage) Active() bool {
	return s.updater != nil && s.in.Domain != nil
}

func (s *domainStage) Handle(ctx context.Context) error {
	online := s.in.Result != nil && !s.in.Result.IsEmpty()
	return s.updater.MarkCrawled(ctx, s.in.Domain.ID, online, s.in.Now)
}
