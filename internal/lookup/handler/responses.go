package handler

import (
	"time"

	"kyclens/internal/domain"
	"kyclens/internal/lookup"
	"kyclens/internal/reconcile"
)

// IdentityResponse is the wire form of one merged identity. ShownAs is the
// presentation label; Status stays canonical so clients can branch on it.
type IdentityResponse struct {
	Key          string   `json:"key"`
	DisplayName  string   `json:"display_name,omitempty"`
	Email        string   `json:"email,omitempty"`
	ChainAddress string   `json:"chain_address,omitempty"`
	Status       string   `json:"status"`
	ShownAs      string   `json:"shown_as"`
	LastUpdated  string   `json:"last_updated,omitempty"`
	Kind         string   `json:"kind"`
	Sources      []string `json:"sources,omitempty"`
}

func FromIdentity(id domain.Identity) IdentityResponse {
	resp := IdentityResponse{
		Key:          id.Key.String(),
		DisplayName:  id.DisplayName,
		Email:        id.Email,
		ChainAddress: id.ChainAddress,
		Status:       string(id.Status),
		ShownAs:      domain.DisplayLabel(id.Status, id.Kind),
		Kind:         string(id.Kind),
		Sources:      id.Sources,
	}
	if !id.LastUpdated.IsZero() {
		resp.LastUpdated = id.LastUpdated.UTC().Format(time.RFC3339)
	}
	return resp
}

// SearchResponse wraps search results; Count lets clients distinguish an
// empty result set from a missing field.
type SearchResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []IdentityResponse `json:"results"`
}

func FromSearch(query string, matches []domain.Identity) SearchResponse {
	results := make([]IdentityResponse, 0, len(matches))
	for _, id := range matches {
		results = append(results, FromIdentity(id))
	}
	return SearchResponse{Query: query, Count: len(results), Results: results}
}

type ContactResponse struct {
	Email   string `json:"email"`
	Track   string `json:"track"`
	Status  string `json:"status"`
	ShownAs string `json:"shown_as"`
	Matched bool   `json:"matched"`
}

type RoundStatusResponse struct {
	RoundID       string            `json:"round_id"`
	ProjectName   string            `json:"project_name,omitempty"`
	PayoutAddress string            `json:"payout_address,omitempty"`
	OverallStatus string            `json:"overall_status"`
	Contacts      []ContactResponse `json:"contacts"`
}

func FromRound(rs *lookup.RoundStatus) RoundStatusResponse {
	contacts := make([]ContactResponse, 0, len(rs.Contacts))
	for _, c := range rs.Contacts {
		kind := domain.KindIndividual
		if c.Track == "kyb" {
			kind = domain.KindBusiness
		}
		contacts = append(contacts, ContactResponse{
			Email:   c.Email,
			Track:   c.Track,
			Status:  string(c.Status),
			ShownAs: domain.DisplayLabel(c.Status, kind),
			Matched: c.Matched,
		})
	}
	return RoundStatusResponse{
		RoundID:       rs.RoundID,
		ProjectName:   rs.ProjectName,
		PayoutAddress: rs.PayoutAddress,
		OverallStatus: string(rs.Overall),
		Contacts:      contacts,
	}
}

type RefreshResponse struct {
	CycleID    string `json:"cycle_id"`
	ComputedAt string `json:"computed_at"`
	Identities int    `json:"identities"`
	Projects   int    `json:"projects"`
	Records    int    `json:"records"`
}

func FromView(view *reconcile.View) RefreshResponse {
	return RefreshResponse{
		CycleID:    view.CycleID,
		ComputedAt: view.ComputedAt.UTC().Format(time.RFC3339),
		Identities: len(view.Identities),
		Projects:   len(view.Projects),
		Records:    view.Records,
	}
}
