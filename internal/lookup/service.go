// Package lookup answers identity and grant-round queries against the merged
// reconciliation view.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"kyclens/internal/domain"
	"kyclens/internal/lookup/metrics"
	"kyclens/internal/reconcile"
	dErrors "kyclens/pkg/domain-errors"
	"kyclens/pkg/platform/sentinel"
)

// Views supplies the merged view this service queries.
type Views interface {
	View(ctx context.Context) (*reconcile.View, error)
	Refresh(ctx context.Context) (*reconcile.View, error)
}

// ContactStatus is one project contact's verification state. Unmatched
// contacts have never entered verification and count as not started.
type ContactStatus struct {
	Email   string
	Track   string // "kyc" or "kyb"
	Status  domain.Status
	Matched bool
}

// RoundStatus is the per-project rollup for one grant round.
type RoundStatus struct {
	RoundID       string
	ProjectName   string
	PayoutAddress string
	Overall       domain.Status
	Contacts      []ContactStatus
}

// Service resolves lookups against the current view.
type Service struct {
	views   Views
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(views Views, opts ...Option) (*Service, error) {
	if views == nil {
		return nil, fmt.Errorf("view provider is required")
	}
	s := &Service{views: views}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Identity resolves one identity by its resolution key. Accepts the prefixed
// canonical forms as well as bare emails and 0x addresses.
func (s *Service) Identity(ctx context.Context, rawKey string) (domain.Identity, error) {
	key := domain.ParseKey(rawKey)
	if key.IsZero() {
		s.metrics.IncrementLookup("bad_key")
		return domain.Identity{}, dErrors.New(dErrors.CodeBadRequest, "key is not an email, address, or business key")
	}

	view, err := s.views.View(ctx)
	if err != nil {
		return domain.Identity{}, s.viewError(ctx, err)
	}

	id, ok := view.Identities[key.String()]
	if !ok {
		s.metrics.IncrementLookup("miss")
		return domain.Identity{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "no identity for key")
	}
	s.metrics.IncrementLookup("hit")
	return id, nil
}

// Search returns identities whose display name, email, or chain address
// contains the term, case-insensitively. An empty term is rejected rather
// than treated as match-all: callers must distinguish "no query" from "no
// results".
func (s *Service) Search(ctx context.Context, term string) ([]domain.Identity, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		s.metrics.IncrementSearch("no_query")
		return nil, dErrors.Wrap(sentinel.ErrNoQuery, dErrors.CodeNoQuery, "search term is required")
	}

	view, err := s.views.View(ctx)
	if err != nil {
		return nil, s.viewError(ctx, err)
	}

	var matches []domain.Identity
	for _, id := range view.Identities {
		if strings.Contains(strings.ToLower(id.DisplayName), term) ||
			strings.Contains(strings.ToLower(id.Email), term) ||
			strings.Contains(strings.ToLower(id.ChainAddress), term) {
			matches = append(matches, id)
		}
	}
	sortIdentities(matches)
	s.metrics.IncrementSearch("ok")
	return matches, nil
}

// Round rolls up the verification state of every contact on a grant round.
func (s *Service) Round(ctx context.Context, roundID string) (*RoundStatus, error) {
	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "round id is required")
	}

	view, err := s.views.View(ctx)
	if err != nil {
		return nil, s.viewError(ctx, err)
	}

	project, ok := view.Projects[roundID]
	if !ok {
		s.metrics.IncrementRoundCheck("not_found")
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "no project for round")
	}

	out := &RoundStatus{
		RoundID:       project.RoundID,
		ProjectName:   project.Name,
		PayoutAddress: project.PayoutAddress,
	}
	var statuses []domain.Status
	for _, email := range project.KYCEmails {
		contact := ContactStatus{Email: email, Track: "kyc", Status: domain.StatusNotStarted}
		if id, ok := view.Identities["email:"+email]; ok {
			contact.Status = id.Status
			contact.Matched = true
		}
		out.Contacts = append(out.Contacts, contact)
		statuses = append(statuses, contact.Status)
	}
	for _, email := range project.KYBEmails {
		contact := ContactStatus{Email: email, Track: "kyb", Status: domain.StatusNotStarted}
		if id, ok := businessByEmail(view.Identities, email); ok {
			contact.Status = id.Status
			contact.Matched = true
		}
		out.Contacts = append(out.Contacts, contact)
		statuses = append(statuses, contact.Status)
	}
	out.Overall = domain.RollupStatus(statuses)
	s.metrics.IncrementRoundCheck("ok")
	return out, nil
}

// All returns every identity in the view, ordered by resolution key.
func (s *Service) All(ctx context.Context) ([]domain.Identity, error) {
	view, err := s.views.View(ctx)
	if err != nil {
		return nil, s.viewError(ctx, err)
	}
	out := make([]domain.Identity, 0, len(view.Identities))
	for _, id := range view.Identities {
		out = append(out, id)
	}
	sortIdentities(out)
	return out, nil
}

// Projects returns the project registry, ordered by round id.
func (s *Service) Projects(ctx context.Context) ([]domain.Project, error) {
	view, err := s.views.View(ctx)
	if err != nil {
		return nil, s.viewError(ctx, err)
	}
	out := make([]domain.Project, 0, len(view.Projects))
	for _, p := range view.Projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundID < out[j].RoundID })
	return out, nil
}

// Refresh forces a re-fetch of every source and returns the new view.
func (s *Service) Refresh(ctx context.Context) (*reconcile.View, error) {
	view, err := s.views.Refresh(ctx)
	if err != nil {
		s.metrics.IncrementRefresh("error")
		return nil, s.viewError(ctx, err)
	}
	s.metrics.IncrementRefresh("ok")
	return view, nil
}

// viewError maps an upstream fetch failure to the unavailable code so the
// caller sees a retrieval failure rather than a merged view built from
// partial data.
func (s *Service) viewError(ctx context.Context, err error) error {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "view computation failed", "error", err)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "data retrieval failed")
}

// businessByEmail finds the business identity for a contact email. Several
// businesses can share a contact; the most recently updated one wins, with
// the key as a stable tie-break.
func businessByEmail(identities map[string]domain.Identity, email string) (domain.Identity, bool) {
	var (
		best    domain.Identity
		bestKey string
		found   bool
	)
	for ks, id := range identities {
		if id.Key.Kind != domain.KeyCompound || id.Key.Email != email {
			continue
		}
		if !found ||
			id.LastUpdated.After(best.LastUpdated) ||
			(id.LastUpdated.Equal(best.LastUpdated) && ks < bestKey) {
			best = id
			bestKey = ks
			found = true
		}
	}
	return best, found
}

func sortIdentities(list []domain.Identity) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Key.String() < list[j].Key.String()
	})
}
