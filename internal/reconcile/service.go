package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kyclens/internal/domain"
	"kyclens/internal/normalize"
	"kyclens/internal/reconcile/metrics"
	"kyclens/internal/source"
	"kyclens/internal/source/cache"
	"kyclens/internal/source/forms"
	"kyclens/internal/source/persona"
	"kyclens/internal/source/snapshot"
	"kyclens/pkg/platform/sentinel"
)

// ProviderClient fetches the verification provider's paginated endpoints.
type ProviderClient interface {
	Inquiries(ctx context.Context) ([]persona.Item, error)
	Cases(ctx context.Context) ([]persona.Item, error)
}

// SnapshotClient fetches whole snapshot files by path.
type SnapshotClient interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FormsClient fetches the form-submission export.
type FormsClient interface {
	Submissions(ctx context.Context) ([]forms.Submission, error)
}

// SnapshotPaths addresses the CSV snapshot files. Empty paths disable that
// source.
type SnapshotPaths struct {
	Persons    string
	Businesses string
	Projects   string
}

// View is one fully merged, point-in-time result. Recomputed from the current
// snapshots on every request; never mutated after construction.
type View struct {
	CycleID    string
	ComputedAt time.Time
	Identities map[string]domain.Identity
	Projects   map[string]domain.Project
	Records    int
	Gaps       int
}

// Service orchestrates the pipeline: fetch (or reuse cached) raw snapshots,
// normalize, merge, expire. Per-source fetches run in parallel; merge only
// runs once every configured source has succeeded, so a partial failure
// aborts the whole view instead of merging incomplete data.
type Service struct {
	provider  ProviderClient
	snapshots SnapshotClient
	forms     FormsClient
	paths     SnapshotPaths
	cache     cache.Store

	normalizer *normalize.Normalizer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clearedTTL time.Duration
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithForms enables the form-submission source.
func WithForms(client FormsClient) Option {
	return func(s *Service) {
		s.forms = client
	}
}

// WithClearedTTL overrides how long a cleared status stays valid.
func WithClearedTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.clearedTTL = ttl
		}
	}
}

// WithClock fixes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(provider ProviderClient, snapshots SnapshotClient, paths SnapshotPaths, store cache.Store, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}

	s := &Service{
		provider:   provider,
		snapshots:  snapshots,
		paths:      paths,
		cache:      store,
		clearedTTL: DefaultClearedTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.normalizer = normalize.New(s.logger, s.metrics)
	return s, nil
}

// View computes the merged view, reusing cached raw snapshots where present.
func (s *Service) View(ctx context.Context) (*View, error) {
	return s.compute(ctx, false)
}

// Refresh re-fetches every configured source, rewrites the cache, and returns
// the freshly merged view.
func (s *Service) Refresh(ctx context.Context) (*View, error) {
	return s.compute(ctx, true)
}

type raws struct {
	inquiries  []persona.Item
	cases      []persona.Item
	persons    []map[string]string
	businesses []map[string]string
	projects   []map[string]string
	subs       []forms.Submission
}

func (s *Service) compute(ctx context.Context, force bool) (*View, error) {
	cycleID := uuid.NewString()

	raw, err := s.collect(ctx, cycleID, force)
	if err != nil {
		return nil, err
	}

	// Fixed source order keeps timestamp tie-breaks deterministic across
	// runs: inquiries, cases, legacy persons, legacy businesses, forms.
	var records []domain.NormalizedRecord
	for _, item := range raw.inquiries {
		records = append(records, s.normalizer.Inquiry(ctx, item))
	}
	for _, item := range raw.cases {
		records = append(records, s.normalizer.Case(ctx, item))
	}
	for _, row := range raw.persons {
		records = append(records, s.normalizer.LegacyPerson(ctx, row))
	}
	for _, row := range raw.businesses {
		records = append(records, s.normalizer.LegacyBusiness(ctx, row))
	}

	projects := make(map[string]domain.Project)
	for _, row := range raw.projects {
		if p, ok := s.normalizer.GrantProject(ctx, row); ok {
			projects[p.RoundID] = p
		}
	}
	for _, sub := range raw.subs {
		rec, p, ok := s.normalizer.FormSubmission(ctx, sub)
		if !ok {
			continue
		}
		records = append(records, rec)
		mergeProject(projects, p)
	}

	identities, gaps := Merge(records)
	for i := 0; i < gaps; i++ {
		s.metrics.IncrementResolutionGap()
	}
	identities = ApplyExpiration(identities, s.now(), s.clearedTTL)
	s.metrics.SetIdentities(len(identities))

	if s.logger != nil {
		s.logger.InfoContext(ctx, "view computed",
			"cycle_id", cycleID,
			"records", len(records),
			"identities", len(identities),
			"projects", len(projects),
			"resolution_gaps", gaps,
			"forced", force,
		)
	}

	return &View{
		CycleID:    cycleID,
		ComputedAt: s.now(),
		Identities: identities,
		Projects:   projects,
		Records:    len(records),
		Gaps:       gaps,
	}, nil
}

// mergeProject folds a submission's project into the registry keyed by round:
// snapshot metadata wins for name/payout, contact lists union across
// submissions up to the fixed slot bounds.
func mergeProject(projects map[string]domain.Project, p domain.Project) {
	have, ok := projects[p.RoundID]
	if !ok {
		projects[p.RoundID] = p
		return
	}
	if have.Name == "" {
		have.Name = p.Name
	}
	if have.PayoutAddress == "" {
		have.PayoutAddress = p.PayoutAddress
	}
	for _, e := range p.KYCEmails {
		if len(have.KYCEmails) >= domain.MaxKYCContacts {
			break
		}
		have.KYCEmails = appendUnique(have.KYCEmails, e)
	}
	for _, e := range p.KYBEmails {
		if len(have.KYBEmails) >= domain.MaxKYBContacts {
			break
		}
		have.KYBEmails = appendUnique(have.KYBEmails, e)
	}
	if p.SubmittedAt.After(have.SubmittedAt) {
		have.SubmittedAt = p.SubmittedAt
	}
	projects[p.RoundID] = have
}

// collect gathers every configured source's raw payload, in parallel with
// shared cancellation. Any single failure fails the whole collection.
func (s *Service) collect(ctx context.Context, cycleID string, force bool) (*raws, error) {
	g, ctx := errgroup.WithContext(ctx)
	out := &raws{}

	g.Go(func() error {
		return jsonSource(ctx, s, cycleID, force, source.Inquiries, s.provider.Inquiries, &out.inquiries)
	})
	g.Go(func() error {
		return jsonSource(ctx, s, cycleID, force, source.Cases, s.provider.Cases, &out.cases)
	})
	if s.forms != nil {
		g.Go(func() error {
			return jsonSource(ctx, s, cycleID, force, source.Forms, s.forms.Submissions, &out.subs)
		})
	}
	if s.snapshots != nil && s.paths.Persons != "" {
		g.Go(func() error {
			return s.csvSource(ctx, cycleID, force, source.LegacyPersons, s.paths.Persons, &out.persons)
		})
	}
	if s.snapshots != nil && s.paths.Businesses != "" {
		g.Go(func() error {
			return s.csvSource(ctx, cycleID, force, source.LegacyBusinesses, s.paths.Businesses, &out.businesses)
		})
	}
	if s.snapshots != nil && s.paths.Projects != "" {
		g.Go(func() error {
			return s.csvSource(ctx, cycleID, force, source.Projects, s.paths.Projects, &out.projects)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// payload returns the raw bytes for src, from cache unless force or miss.
func (s *Service) payload(ctx context.Context, cycleID string, force bool, src string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if !force {
		snap, err := s.cache.Get(ctx, src)
		if err == nil {
			return snap.Payload, nil
		}
		if !errors.Is(err, sentinel.ErrCacheMiss) && s.logger != nil {
			s.logger.WarnContext(ctx, "cache read failed, fetching fresh",
				"source", src,
				"error", err,
			)
		}
	}

	start := time.Now()
	payload, err := fetch(ctx)
	s.metrics.ObserveFetch(src, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	snap := &cache.Snapshot{
		Source:    src,
		CycleID:   cycleID,
		FetchedAt: s.now(),
		Payload:   payload,
	}
	if err := s.cache.Put(ctx, snap); err != nil && s.logger != nil {
		// A cache write failure degrades to refetching next time.
		s.logger.WarnContext(ctx, "cache write failed",
			"source", src,
			"error", err,
		)
	}
	return payload, nil
}

// jsonSource routes a typed fetch through the byte-oriented cache.
func jsonSource[T any](ctx context.Context, s *Service, cycleID string, force bool, src string, fetch func(context.Context) ([]T, error), dst *[]T) error {
	payload, err := s.payload(ctx, cycleID, force, src, func(ctx context.Context) ([]byte, error) {
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return source.NewFetchError(src, "cache", fmt.Errorf("decode cached payload: %w", err))
	}
	return nil
}

func (s *Service) csvSource(ctx context.Context, cycleID string, force bool, src, path string, dst *[]map[string]string) error {
	payload, err := s.payload(ctx, cycleID, force, src, func(ctx context.Context) ([]byte, error) {
		raw, err := s.snapshots.Fetch(ctx, path)
		if err != nil {
			return nil, source.NewFetchError(src, path, err)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	rows, err := snapshot.DecodeCSV(payload)
	if err != nil {
		return source.NewFetchError(src, path, err)
	}
	*dst = rows
	return nil
}
